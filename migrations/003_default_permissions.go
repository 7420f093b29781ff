package migrations

import (
	"context"

	"MamaCare/db"
	"MamaCare/role"
	"MamaCare/util"
)

func DefaultPermissions(ctx context.Context, store db.Store) (int, error) {
	docs, err := allUsers(ctx, store)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, doc := range docs {
		if _, ok := doc["permissions"]; ok {
			continue
		}
		stored, _ := doc["role"].(string)
		perms := role.Strings(role.DefaultPermissions(role.Parse(stored)))
		err := store.Update(ctx, util.UserCollection, docID(doc), db.Mutation{
			Set: map[string]interface{}{"permissions": perms},
		})
		if err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
