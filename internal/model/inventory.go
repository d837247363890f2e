package model

import (
	"time"
)

// Room is a physical room owned by an account. Letter is the room's
// storage-code namespace prefix; it stays unset until the first storage
// cell is allocated in the room.
type Room struct {
	ID        int64     `db:"id" json:"id"`
	AccountID string    `db:"account_id" json:"-"`
	Name      string    `db:"name" json:"name"`
	Letter    *string   `db:"letter" json:"letter,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type Furniture struct {
	ID        int64     `db:"id" json:"id"`
	AccountID string    `db:"account_id" json:"-"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// StorageCell is a single storage location inside a (room, furniture)
// pair. CellCode is a pure function of the room letter, furniture id
// and cell number and is never edited independently of them.
type StorageCell struct {
	ID          int64     `db:"id" json:"id"`
	AccountID   string    `db:"account_id" json:"-"`
	RoomID      int64     `db:"room_id" json:"roomId"`
	FurnitureID int64     `db:"furniture_id" json:"furnitureId"`
	CellNumber  int       `db:"cell_number" json:"cellNumber"`
	CellCode    string    `db:"cell_code" json:"cellCode"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// StorageCellDetail is a StorageCell joined with its room and furniture
// names, enough to compose the human-readable location string without
// further lookups.
type StorageCellDetail struct {
	StorageCell
	RoomName      string `db:"room_name" json:"roomName"`
	FurnitureName string `db:"furniture_name" json:"furnitureName"`
}

// DisplayName is the composed location string denormalized onto items
// when a pairing completes.
func (d *StorageCellDetail) DisplayName() string {
	return d.RoomName + " / " + d.FurnitureName + " / " + d.CellCode
}

type Item struct {
	ID        int64     `db:"id" json:"id"`
	AccountID string    `db:"account_id" json:"-"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Location  string    `db:"location" json:"location"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreateRoomParams struct {
	AccountID string
	Name      string
}

type CreateFurnitureParams struct {
	AccountID string
	Name      string
}

type CreateStorageCellParams struct {
	AccountID   string
	RoomID      int64
	FurnitureID int64
	CellNumber  int
	CellCode    string
}

type CreateItemParams struct {
	AccountID string
	Code      string
	Name      string
}

// Label is a cached rendered QR image for an allocated code.
type Label struct {
	AccountID string       `db:"account_id" json:"-"`
	Code      string       `db:"code" json:"code"`
	Category  ScanCategory `db:"category" json:"category"`
	PNG       []byte       `db:"png" json:"-"`
	CreatedAt time.Time    `db:"created_at" json:"createdAt"`
}
