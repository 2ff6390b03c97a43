package helpers

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/repository"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/pg"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/redis"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&repository.CustomerEntity{},
		&repository.TransactionEntity{},
		&repository.SchemeEntity{},
		&repository.SettlementBatchEntity{},
		&repository.SettledTransactionEntity{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	adapter, err := redis.NewRedisAdapter("test", "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestCustomer(t *testing.T, db *pg.DB, phone string, totalGold float64) *repository.CustomerEntity {
	ctx := context.Background()
	customer := &repository.CustomerEntity{
		Phone:     phone,
		Name:      "Test Customer",
		TotalGold: totalGold,
	}
	err := db.Write(ctx).Create(customer).Error
	require.NoError(t, err)
	return customer
}

func CreateTestTransaction(t *testing.T, db *pg.DB, orderID, phone, metalType, status string, amount float64) *repository.TransactionEntity {
	ctx := context.Background()
	txn := &repository.TransactionEntity{
		OrderID:   orderID,
		Phone:     phone,
		Type:      "BUY",
		Amount:    amount,
		MetalType: metalType,
		Status:    status,
		CreatedAt: time.Now(),
	}
	err := db.Write(ctx).Create(txn).Error
	require.NoError(t, err)
	return txn
}

func CreateTestScheme(t *testing.T, db *pg.DB, schemeID, phone, metalType, status string) *repository.SchemeEntity {
	ctx := context.Background()
	scheme := &repository.SchemeEntity{
		SchemeID:      schemeID,
		Phone:         phone,
		MetalType:     metalType,
		Type:          "MONTHLY",
		MonthlyAmount: 5000,
		Status:        status,
	}
	err := db.Write(ctx).Create(scheme).Error
	require.NoError(t, err)
	return scheme
}

func NewTestOrderID(metal string) string {
	return fmt.Sprintf("ORD_%d_%s_959", time.Now().UnixMilli(), metal)
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}
