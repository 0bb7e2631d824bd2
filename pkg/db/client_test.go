package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/angelmondragon/storefront-engine/pkg/config"
	"github.com/angelmondragon/storefront-engine/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newSQLiteClient(t *testing.T) *Client {
	t.Helper()
	cfg := config.DBConfig{SQLitePath: filepath.Join(t.TempDir(), "menu.db")}
	client, err := New(context.Background(), cfg, true, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.DB().AutoMigrate(&models.Product{}, &models.OrderStep{}, &models.OrderStepItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return client
}

func TestNewRequiresDSNForPostgres(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{}, false, nil); err == nil {
		t.Fatal("expected missing DSN error")
	}
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	client := newSQLiteClient(t)
	if client.Dialect() != "sqlite" {
		t.Fatalf("unexpected dialect %q", client.Dialect())
	}

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&models.Product{ID: uuid.New(), Name: "committed", ProductType: "simple", SalePrice: decimal.NewFromInt(5)}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := client.DB().Model(&models.Product{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&models.Product{ID: uuid.New(), Name: "rolled", ProductType: "simple", SalePrice: decimal.NewFromInt(5)}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := client.DB().Model(&models.Product{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestPingAndNotFound(t *testing.T) {
	client := newSQLiteClient(t)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}

	var p models.Product
	err := client.DB().First(&p, "id = ?", uuid.New()).Error
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
