// Package boosters — repository.go выполняет все операции с таблицами
// booster_catalog, booster_purchases, booster_usages и booster_activations.
//
// Покупки и возвраты только добавляются в леджер; остаток считается суммой,
// а не хранится отдельным полем. Смена статуса расхода — условный UPDATE
// с проверкой прежнего статуса (compare-and-swap).
package boosters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/bolao/internal/common"
	"serotonyl.ru/bolao/internal/db/postgres"
)

// Repository предоставляет методы для работы с бустерами.
type Repository struct {
	db postgres.DB
}

// NewRepository создаёт новый репозиторий бустеров.
func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

// Atomically выполняет fn в транзакции под advisory-блокировкой lockKey.
// Внутри fn репозиторий работает на той же транзакции.
func (r *Repository) Atomically(ctx context.Context, lockKey string, fn func(Store) error) error {
	return postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := postgres.AdvisoryXactLock(ctx, tx, lockKey); err != nil {
			return err
		}
		return fn(&Repository{db: tx})
	})
}

// CatalogEntry возвращает запись каталога.
// Если бустера нет — common.ErrCatalogMissing.
func (r *Repository) CatalogEntry(ctx context.Context, boosterID string) (*CatalogEntry, error) {
	query := `
		SELECT id, name, default_duration_days, metadata
		FROM booster_catalog
		WHERE id = $1
	`
	var c CatalogEntry
	err := r.db.QueryRow(ctx, query, boosterID).Scan(&c.ID, &c.Name, &c.DefaultDurationDays, &c.Metadata)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w (booster=%s)", common.ErrCatalogMissing, boosterID)
		}
		return nil, fmt.Errorf("ошибка чтения каталога: %w", err)
	}
	return &c, nil
}

// Available возвращает свободный остаток:
// сумма леджера покупок минус число строк расхода в любом статусе.
// Единицу возвращает только строка source='refund' в леджере.
func (r *Repository) Available(ctx context.Context, userID, boosterID string) (int64, error) {
	query := `
		SELECT
			COALESCE((SELECT SUM(amount) FROM booster_purchases
			          WHERE user_id = $1 AND booster = $2), 0)
			-
			(SELECT COUNT(*) FROM booster_usages
			 WHERE user_id = $1 AND booster = $2)
	`
	var available int64
	if err := r.db.QueryRow(ctx, query, userID, boosterID).Scan(&available); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта остатка: %w", err)
	}
	return available, nil
}

// Inventory возвращает остатки по всем бустерам пользователя.
func (r *Repository) Inventory(ctx context.Context, userID string) ([]*InventoryItem, error) {
	query := `
		WITH p AS (
			SELECT booster, SUM(amount) AS purchased
			FROM booster_purchases
			WHERE user_id = $1
			GROUP BY booster
		), u AS (
			SELECT booster, COUNT(*) AS used
			FROM booster_usages
			WHERE user_id = $1
			GROUP BY booster
		)
		SELECT COALESCE(p.booster, u.booster), COALESCE(p.purchased, 0), COALESCE(u.used, 0)
		FROM p FULL OUTER JOIN u ON p.booster = u.booster
		ORDER BY 1
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения инвентаря: %w", err)
	}
	defer rows.Close()

	var items []*InventoryItem
	for rows.Next() {
		var it InventoryItem
		if err := rows.Scan(&it.BoosterID, &it.Purchased, &it.Used); err != nil {
			return nil, fmt.Errorf("ошибка сканирования инвентаря: %w", err)
		}
		it.Available = it.Purchased - it.Used
		items = append(items, &it)
	}
	return items, rows.Err()
}

// ActiveGlobalActivation возвращает действующую глобальную (pool_id IS NULL)
// активацию пользователя. Если её нет — (nil, nil).
func (r *Repository) ActiveGlobalActivation(ctx context.Context, userID, boosterID string) (*Activation, error) {
	query := `
		SELECT id, user_id, booster_id, pool_id, scope, status, expires_at, created_at, updated_at
		FROM booster_activations
		WHERE user_id = $1 AND booster_id = $2 AND pool_id IS NULL AND status = 'active'
		ORDER BY expires_at DESC NULLS LAST
		LIMIT 1
	`
	var a Activation
	err := r.db.QueryRow(ctx, query, userID, boosterID).Scan(
		&a.ID, &a.UserID, &a.BoosterID, &a.PoolID, &a.Scope, &a.Status,
		&a.ExpiresAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка поиска активации: %w", err)
	}
	return &a, nil
}

// ExtendActivation переносит срок действующей активации.
func (r *Repository) ExtendActivation(ctx context.Context, id string, expiresAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE booster_activations
		SET expires_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`, id, expiresAt)
	if err != nil {
		return fmt.Errorf("ошибка продления активации: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("активация %s больше не активна", id)
	}
	return nil
}

// CreateActivation создаёт новую активацию.
func (r *Repository) CreateActivation(ctx context.Context, a *Activation) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO booster_activations (id, user_id, booster_id, pool_id, scope, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.UserID, a.BoosterID, a.PoolID, a.Scope, a.Status, a.ExpiresAt)
	if err != nil {
		return fmt.Errorf("ошибка создания активации: %w", err)
	}
	return nil
}

// ListActiveActivations возвращает active-активации бустера для пользователей userIDs.
// Срок и пул не фильтруются — это решает Activation.AppliesTo.
func (r *Repository) ListActiveActivations(ctx context.Context, boosterID string, userIDs []string) ([]*Activation, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, user_id, booster_id, pool_id, scope, status, expires_at, created_at, updated_at
		FROM booster_activations
		WHERE booster_id = $1 AND status = 'active' AND user_id = ANY($2)
		ORDER BY user_id, id
	`
	rows, err := r.db.Query(ctx, query, boosterID, userIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса активаций: %w", err)
	}
	defer rows.Close()

	var out []*Activation
	for rows.Next() {
		var a Activation
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.BoosterID, &a.PoolID, &a.Scope, &a.Status,
			&a.ExpiresAt, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования активации: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// InsertUsage записывает один расход.
func (r *Repository) InsertUsage(ctx context.Context, u *Usage) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO booster_usages (id, user_id, booster, pool_id, match_id, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.UserID, u.BoosterID, u.PoolID, u.MatchID, string(u.Status), u.ExpiresAt)
	if err != nil {
		return fmt.Errorf("ошибка записи расхода: %w", err)
	}
	return nil
}

// ConsumeUsage записывает расход под той же блокировкой (user, booster),
// что и активация, и только если остаток > 0.
// Возвращает false, если единиц не осталось.
func (r *Repository) ConsumeUsage(ctx context.Context, u *Usage) (bool, error) {
	consumed := false
	err := r.Atomically(ctx, LockKey(u.UserID, u.BoosterID), func(tx Store) error {
		available, err := tx.Available(ctx, u.UserID, u.BoosterID)
		if err != nil {
			return err
		}
		if available <= 0 {
			return nil
		}
		if err := tx.InsertUsage(ctx, u); err != nil {
			return err
		}
		consumed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return consumed, nil
}

// ListExpiredPending возвращает pending-расходы с expires_at < now.
func (r *Repository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*Usage, error) {
	query := `
		SELECT id, user_id, booster, pool_id, match_id, status, expires_at, created_at
		FROM booster_usages
		WHERE status = 'pending' AND expires_at < $1
		ORDER BY expires_at, id
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска просроченных расходов: %w", err)
	}
	defer rows.Close()

	var out []*Usage
	for rows.Next() {
		var u Usage
		var status string
		if err := rows.Scan(
			&u.ID, &u.UserID, &u.BoosterID, &u.PoolID, &u.MatchID,
			&status, &u.ExpiresAt, &u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования расхода: %w", err)
		}
		u.Status = UsageStatus(status)
		out = append(out, &u)
	}
	return out, rows.Err()
}

// TransitionUsage меняет статус расхода, только если он всё ещё from.
// Возвращает false, если строку уже обработал кто-то другой (0 строк затронуто).
func (r *Repository) TransitionUsage(ctx context.Context, id string, from, to UsageStatus) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE booster_usages
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("ошибка смены статуса расхода %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// InsertPurchase добавляет строку в леджер покупок.
func (r *Repository) InsertPurchase(ctx context.Context, p *Purchase) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO booster_purchases (id, user_id, booster, amount, source)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.UserID, p.BoosterID, p.Amount, p.Source)
	if err != nil {
		return fmt.Errorf("ошибка записи в леджер покупок: %w", err)
	}
	return nil
}
