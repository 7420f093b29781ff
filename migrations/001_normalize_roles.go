package migrations

import (
	"context"

	"MamaCare/db"
	"MamaCare/role"
	"MamaCare/util"
)

// NormalizeRoles lowercases stored roles and maps anything outside the
// known set, including a missing role, to "unknown".
func NormalizeRoles(ctx context.Context, store db.Store) (int, error) {
	docs, err := allUsers(ctx, store)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, doc := range docs {
		stored, _ := doc["role"].(string)
		want := string(role.Parse(stored))
		if stored == want {
			continue
		}
		err := store.Update(ctx, util.UserCollection, docID(doc), db.Mutation{
			Set: map[string]interface{}{"role": want, "updatedAt": db.ServerTimestamp},
		})
		if err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
