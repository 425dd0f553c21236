package mongo

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/sweetshop/inventory-service/internal/core/domain"
	"github.com/sweetshop/inventory-service/internal/core/ports"
)

func ptr[T any](v T) *T { return &v }

func TestSearchFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter ports.ItemFilter
		want   bson.M
	}{
		{"empty", ports.ItemFilter{}, bson.M{}},
		{
			"name is escaped and case-insensitive",
			ports.ItemFilter{Name: "choc.chip"},
			bson.M{"name": bson.M{"$regex": `choc\.chip`, "$options": "i"}},
		},
		{
			"category with price range",
			ports.ItemFilter{Category: "Indian", MinPrice: ptr(1.0), MaxPrice: ptr(9.5)},
			bson.M{
				"category": bson.M{"$regex": "Indian", "$options": "i"},
				"price":    bson.M{"$gte": 1.0, "$lte": 9.5},
			},
		},
		{"max only", ports.ItemFilter{MaxPrice: ptr(3.0)}, bson.M{"price": bson.M{"$lte": 3.0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := searchFilter(tt.filter); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPatchDocument(t *testing.T) {
	got := patchDocument(domain.ItemPatch{Price: ptr(2.5), ImageURL: ptr("")})
	want := bson.M{"price": 2.5, "image_url": ""}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if len(patchDocument(domain.ItemPatch{})) != 0 {
		t.Fatalf("expected empty document for empty patch")
	}
}

func TestParseID(t *testing.T) {
	if _, err := parseID("not-hex"); !errors.Is(err, errInvalidID) {
		t.Fatalf("expected errInvalidID, got %v", err)
	}
	oid, err := parseID("65a1f0c2e4b0a1b2c3d4e5f6")
	if err != nil {
		t.Fatalf("parseID: %v", err)
	}
	if oid.Hex() != "65a1f0c2e4b0a1b2c3d4e5f6" {
		t.Fatalf("unexpected oid %s", oid.Hex())
	}
}

func TestUnixToTime(t *testing.T) {
	if !unixToTime(0).IsZero() {
		t.Fatalf("expected zero time for 0")
	}
	got := unixToTime(1700000000)
	if !got.Equal(time.Unix(1700000000, 0)) || got.Location() != time.UTC {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestIncrementFilter(t *testing.T) {
	oid, err := parseID("65a1f0c2e4b0a1b2c3d4e5f6")
	if err != nil {
		t.Fatalf("parseID: %v", err)
	}

	got := incrementFilter(oid, 5)
	want := bson.M{"_id": oid, "quantity": bson.M{"$lte": int64(math.MaxInt64 - 5)}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
