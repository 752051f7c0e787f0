// Package members управляет участниками пулов (bolão).
// models.go описывает связь «пул — участник» из таблицы pool_members.
package members

import "time"

// PoolMember — участник пула. Связь многие-ко-многим:
// один пользователь может играть в нескольких пулах.
type PoolMember struct {
	PoolID   string    `db:"pool_id"`   // ID пула
	UserID   string    `db:"user_id"`   // ID пользователя (sub из токена)
	JoinedAt time.Time `db:"joined_at"` // Когда вступил в пул
}

// UserIDs возвращает ID пользователей в том же порядке, что и members.
func UserIDs(members []*PoolMember) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.UserID)
	}
	return out
}
