package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Venue is a bookable space listed by an owner.  This struct
// corresponds to a row in the `venues` table.
//
// Fields:
//
//	ID          – primary key identifier.
//	OwnerID     – users.id of the owner who registered the venue.
//	Name        – display name.
//	Address     – street address.
//	Review      – free-text review blurb.
//	Features    – free-text feature list ("WiFi, Parking").
//	Description – long description.
//	ImageURLs   – image references, stored as a JSON array.
//	MinPrice    – lowest daily price.
//	MaxPrice    – highest daily price; never below MinPrice.
//	MaxCapacity – maximum number of guests.
type Venue struct {
	ID          uint64          `db:"id"`
	OwnerID     uint64          `db:"owner_id"`
	Name        string          `db:"name"`
	Address     string          `db:"address"`
	Review      string          `db:"review"`
	Features    string          `db:"features"`
	Description string          `db:"description"`
	ImageURLs   StringList      `db:"image_urls"`
	MinPrice    decimal.Decimal `db:"min_price"`
	MaxPrice    decimal.Decimal `db:"max_price"`
	MaxCapacity uint32          `db:"max_capacity"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// StringList is a []string persisted as a JSON array in a TEXT column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into model.StringList", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("image_urls: %w", err)
	}
	*l = out
	return nil
}
