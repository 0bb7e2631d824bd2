package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestIndexDisplayDegradesToPlaceholder(t *testing.T) {
	t.Parallel()

	index := NewIndex([]Product{{ID: "cola", Name: "Cola Zero", PhotoURL: "/img/cola.png"}})
	if index.Len() != 1 {
		t.Fatalf("len = %d", index.Len())
	}

	resolved := index.Display(StepItem{ProductID: "cola", PriceOverride: decimal.Zero})
	if !resolved.Resolved || resolved.Name != "Cola Zero" || resolved.PhotoURL != "/img/cola.png" || !resolved.Included {
		t.Fatalf("unexpected resolved display %+v", resolved)
	}

	missing := index.Display(StepItem{ProductID: "ghost", ProductName: "Mystery", PriceOverride: decimal.NewFromInt(2)})
	if missing.Resolved || missing.PhotoURL != PlaceholderPhotoURL || missing.Name != "Mystery" || missing.Included {
		t.Fatalf("unexpected placeholder display %+v", missing)
	}
}

func TestMenuProductNilSafe(t *testing.T) {
	t.Parallel()

	var menu *Menu
	if _, ok := menu.Product("x"); ok {
		t.Fatal("nil menu should not resolve products")
	}
}
