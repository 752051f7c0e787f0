package members

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticStore struct {
	members []*PoolMember
	err     error
}

func (s staticStore) ListByPool(_ context.Context, poolID string) ([]*PoolMember, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*PoolMember
	for _, m := range s.members {
		if m.PoolID == poolID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s staticStore) IsMember(_ context.Context, poolID, userID string) (bool, error) {
	for _, m := range s.members {
		if m.PoolID == poolID && m.UserID == userID {
			return true, nil
		}
	}
	return false, s.err
}

func TestServiceUserIDs(t *testing.T) {
	svc := NewService(staticStore{members: []*PoolMember{
		{PoolID: "p1", UserID: "ana"},
		{PoolID: "p1", UserID: "bia"},
		{PoolID: "p2", UserID: "caio"},
	}})

	ids, err := svc.UserIDs(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ana", "bia"}, ids)

	ids, err = svc.UserIDs(context.Background(), "empty")
	require.NoError(t, err)
	assert.Empty(t, ids)

	ok, err := svc.IsMember(context.Background(), "p2", "caio")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestServiceUserIDsError(t *testing.T) {
	boom := errors.New("db down")
	_, err := NewService(staticStore{err: boom}).UserIDs(context.Background(), "p1")
	assert.ErrorIs(t, err, boom)
}

func TestRepositoryListByPool(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	joined := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM pool_members").
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{"pool_id", "user_id", "joined_at"}).
			AddRow("p1", "ana", joined).
			AddRow("p1", "bia", joined))

	list, err := NewRepository(mock).ListByPool(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "bia", list[1].UserID)
	assert.Equal(t, joined, list[0].JoinedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryIsMember(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("p1", "dora").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := NewRepository(mock).IsMember(context.Background(), "p1", "dora")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
