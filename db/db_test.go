package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/gorm"

	"github.com/ceyewan/bits/snowflake"
	"github.com/ceyewan/bits/testkit"
	"github.com/ceyewan/bits/xerrors"
)

type Order struct {
	Model
	Amount int64
}

// Event 主键自增，额外的两列由 Snowflake 填充
type Event struct {
	ID      uint `gorm:"primaryKey"`
	TraceID int64
	Ref     snowflake.ID
	Name    string
}

func (Event) SnowflakeColumns() []string {
	return []string{"TraceID", "ref"}
}

type BadEvent struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func (BadEvent) SnowflakeColumns() []string {
	return []string{"Name"}
}

type PlainUser struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func newTestDB(t *testing.T) (DB, *snowflake.Generator) {
	t.Helper()
	gen, err := snowflake.New(&snowflake.Config{DatacenterID: 1, WorkerID: 15})
	require.NoError(t, err)

	database, err := New(&Config{},
		WithSQLiteConnector(testkit.NewSQLiteConnector(t)),
		WithGenerator(gen),
		WithLogger(testkit.NewLogger()),
		WithSilentMode(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database, gen
}

// =============================================================================
// 配置
// =============================================================================

func TestNew_Validation(t *testing.T) {
	_, err := New(&Config{})
	assert.ErrorIs(t, err, ErrSQLiteConnectorRequired)

	_, err = New(&Config{Driver: "oracle"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	_, err = New(&Config{EnableSharding: true})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(&Config{EnableSharding: true, ShardingRules: []ShardingRule{{ShardingKey: "user_id", Tables: []string{"orders"}}}})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(&Config{EnableSharding: true, ShardingRules: []ShardingRule{
		{ShardingKey: "user_id", NumberOfShards: 4, Tables: []string{"orders"}},
		{ShardingKey: "tenant_id", NumberOfShards: 2, Tables: []string{"invoices"}},
	}})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg := &Config{}
	cfg.setDefaults()
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowThreshold)
}

// =============================================================================
// Snowflake 主键
// =============================================================================

func TestPlugin_PrimaryKey(t *testing.T) {
	database, gen := newTestDB(t)
	ctx := context.Background()
	gormDB := database.DB(ctx)
	require.NoError(t, gormDB.AutoMigrate(&Order{}))

	t.Run("single record", func(t *testing.T) {
		order := Order{Amount: 100}
		require.NoError(t, gormDB.Create(&order).Error)
		require.NotZero(t, order.ID)

		id := gen.Parse(order.ID)
		assert.Equal(t, int64(1), id.DatacenterID())
		assert.Equal(t, int64(15), id.WorkerID())
		assert.WithinDuration(t, time.Now(), id.Time(), time.Minute)

		var fetched Order
		require.NoError(t, gormDB.First(&fetched, order.ID).Error)
		assert.Equal(t, int64(100), fetched.Amount)
	})

	t.Run("preset key is kept", func(t *testing.T) {
		order := Order{Model: Model{ID: 42}, Amount: 7}
		require.NoError(t, gormDB.Create(&order).Error)
		assert.Equal(t, int64(42), order.ID)
	})

	t.Run("batch", func(t *testing.T) {
		orders := []Order{{Amount: 1}, {Amount: 2}, {Amount: 3}}
		require.NoError(t, gormDB.Create(&orders).Error)

		seen := make(map[int64]struct{})
		for _, o := range orders {
			require.NotZero(t, o.ID)
			seen[o.ID] = struct{}{}
		}
		assert.Len(t, seen, 3)
		assert.Less(t, orders[0].ID, orders[2].ID)
	})

	t.Run("batch of pointers", func(t *testing.T) {
		orders := []*Order{{Amount: 4}, {Amount: 5}}
		require.NoError(t, gormDB.Create(&orders).Error)
		assert.NotZero(t, orders[0].ID)
		assert.NotEqual(t, orders[0].ID, orders[1].ID)
	})
}

func TestPlugin_DeclaredColumns(t *testing.T) {
	database, gen := newTestDB(t)
	gormDB := database.DB(context.Background())
	require.NoError(t, gormDB.AutoMigrate(&Event{}, &BadEvent{}, &PlainUser{}))

	ev := Event{Name: "created"}
	require.NoError(t, gormDB.Create(&ev).Error)
	assert.NotZero(t, ev.ID)
	assert.NotZero(t, ev.TraceID)
	assert.False(t, ev.Ref.IsZero())
	assert.Equal(t, int64(15), gen.Parse(ev.TraceID).WorkerID())

	var fetched Event
	require.NoError(t, gormDB.First(&fetched, ev.ID).Error)
	assert.Equal(t, ev.TraceID, fetched.TraceID)
	assert.Equal(t, ev.Ref.Int64(), fetched.Ref.Int64())

	err := gormDB.Create(&BadEvent{Name: "x"}).Error
	assert.ErrorIs(t, err, ErrUnsupportedKey)

	// 自增主键不受影响
	user := PlainUser{Name: "alice"}
	require.NoError(t, gormDB.Create(&user).Error)
	assert.Equal(t, uint(1), user.ID)
}

func TestTransaction(t *testing.T) {
	database, _ := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, database.DB(ctx).AutoMigrate(&Order{}))

	rollback := xerrors.New("rollback")
	err := database.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		require.NoError(t, tx.Create(&Order{Amount: 1}).Error)
		return rollback
	})
	assert.ErrorIs(t, err, rollback)

	var count int64
	require.NoError(t, database.DB(ctx).Model(&Order{}).Count(&count).Error)
	assert.Zero(t, count)

	err = database.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return tx.Create(&Order{Amount: 2}).Error
	})
	require.NoError(t, err)
	require.NoError(t, database.DB(ctx).Model(&Order{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	gen := snowflake.Must(nil)
	database, err := New(nil,
		WithSQLiteConnector(testkit.NewSQLiteConnector(t)),
		WithGenerator(gen),
		WithTracerProvider(tp),
		WithSilentMode(),
	)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, database.DB(ctx).AutoMigrate(&Order{}))
	require.NoError(t, database.DB(ctx).Create(&Order{Amount: 3}).Error)
	assert.NotEmpty(t, recorder.Ended())
}

func TestSharding(t *testing.T) {
	gen := snowflake.Must(nil)
	_, err := New(&Config{
		EnableSharding: true,
		ShardingRules: []ShardingRule{
			{ShardingKey: "user_id", NumberOfShards: 4, Tables: []string{"orders"}},
		},
	}, WithSQLiteConnector(testkit.NewSQLiteConnector(t)), WithGenerator(gen))
	require.NoError(t, err)
}

func TestShardingKeyFn(t *testing.T) {
	t.Run("retries transient errors", func(t *testing.T) {
		calls := 0
		resolver := snowflake.ResolverFunc(func(context.Context, int64) (int64, error) {
			calls++
			if calls <= 2 {
				return 0, xerrors.ErrUnavailable
			}
			return 0, nil
		})
		gen := snowflake.Must(&snowflake.Config{DatacenterID: 1, WorkerID: 15}, snowflake.WithResolver(resolver))

		key := shardingKeyFn(gen, testkit.NewLogger(), time.Second)(0)
		assert.NotZero(t, key)
		assert.Equal(t, 3, calls)
		assert.Equal(t, int64(15), gen.Parse(key).WorkerID())
	})

	t.Run("gives up after timeout", func(t *testing.T) {
		calls := 0
		resolver := snowflake.ResolverFunc(func(context.Context, int64) (int64, error) {
			calls++
			return 0, xerrors.ErrUnavailable
		})
		gen := snowflake.Must(&snowflake.Config{DatacenterID: 1, WorkerID: 15}, snowflake.WithResolver(resolver))

		start := time.Now()
		key := shardingKeyFn(gen, testkit.NewLogger(), 20*time.Millisecond)(0)
		assert.Zero(t, key)
		assert.Greater(t, calls, 1)
		assert.Less(t, time.Since(start), time.Second)
	})
}
