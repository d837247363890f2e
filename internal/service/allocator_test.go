package service

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homestash/homestash-server/internal/database"
	apperrors "github.com/homestash/homestash-server/internal/errors"
	"github.com/homestash/homestash-server/internal/model"
	"github.com/homestash/homestash-server/internal/repository"
)

// fakeTxRunner runs the callback without a real transaction; the
// in-memory fakes below ignore the tx handle anyway.
type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(_ context.Context, fn database.TxFunc) error {
	return fn(nil)
}

// In-memory repository fakes. They hold state behind a mutex so the
// concurrency tests can hammer them from many goroutines.

type memItemRepo struct {
	mu       sync.Mutex
	codes    map[string]bool
	items    map[string]*model.Item
	attached map[int64][]int64
	next     int64
}

func newMemItemRepo() *memItemRepo {
	return &memItemRepo{
		codes:    map[string]bool{},
		items:    map[string]*model.Item{},
		attached: map[int64][]int64{},
	}
}

func (m *memItemRepo) CodeExists(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[code], nil
}

func (m *memItemRepo) Create(_ context.Context, params model.CreateItemParams) (*model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes[params.Code] {
		return nil, fmt.Errorf("duplicate code %s", params.Code)
	}
	m.next++
	item := &model.Item{ID: m.next, AccountID: params.AccountID, Code: params.Code, Name: params.Name}
	m.codes[params.Code] = true
	m.items[params.Code] = item
	return item, nil
}

func (m *memItemRepo) FindByCode(_ context.Context, accountID, code string) (*model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[code]
	if !ok || item.AccountID != accountID {
		return nil, nil
	}
	return item, nil
}

func (m *memItemRepo) ListByAccount(context.Context, string) ([]model.Item, error) { return nil, nil }

func (m *memItemRepo) Delete(_ context.Context, accountID, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[code]
	if !ok || item.AccountID != accountID {
		return false, nil
	}
	delete(m.items, code)
	return true, nil
}

func (m *memItemRepo) AttachCell(_ context.Context, itemID, cellID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.attached[itemID] {
		if existing == cellID {
			return nil
		}
	}
	m.attached[itemID] = append(m.attached[itemID], cellID)
	return nil
}

func (m *memItemRepo) UpdateLocation(_ context.Context, itemID int64, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.ID == itemID {
			item.Location = location
		}
	}
	return nil
}

func (m *memItemRepo) WithTx(*sqlx.Tx) repository.ItemRepository { return m }

type memRoomRepo struct {
	mu    sync.Mutex
	rooms map[int64]*model.Room
}

func newMemRoomRepo(rooms ...*model.Room) *memRoomRepo {
	r := &memRoomRepo{rooms: map[int64]*model.Room{}}
	for _, room := range rooms {
		r.rooms[room.ID] = room
	}
	return r
}

func (m *memRoomRepo) FindByID(_ context.Context, accountID string, id int64) (*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok || room.AccountID != accountID {
		return nil, nil
	}
	copied := *room
	return &copied, nil
}

func (m *memRoomRepo) FindByIDForUpdate(ctx context.Context, accountID string, id int64) (*model.Room, error) {
	return m.FindByID(ctx, accountID, id)
}

func (m *memRoomRepo) ListByAccount(context.Context, string) ([]model.Room, error) { return nil, nil }

func (m *memRoomRepo) AssignedLetters(_ context.Context, accountID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var letters []string
	for _, room := range m.rooms {
		if room.AccountID == accountID && room.Letter != nil {
			letters = append(letters, *room.Letter)
		}
	}
	return letters, nil
}

func (m *memRoomRepo) SetLetter(_ context.Context, id int64, letter string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[id].Letter = &letter
	return nil
}

func (m *memRoomRepo) Create(context.Context, model.CreateRoomParams) (*model.Room, error) {
	return nil, nil
}
func (m *memRoomRepo) WithTx(*sqlx.Tx) repository.RoomRepository { return m }

type memFurnitureRepo struct {
	furniture map[int64]*model.Furniture
}

func newMemFurnitureRepo(fs ...*model.Furniture) *memFurnitureRepo {
	r := &memFurnitureRepo{furniture: map[int64]*model.Furniture{}}
	for _, f := range fs {
		r.furniture[f.ID] = f
	}
	return r
}

func (m *memFurnitureRepo) FindByID(_ context.Context, accountID string, id int64) (*model.Furniture, error) {
	f, ok := m.furniture[id]
	if !ok || f.AccountID != accountID {
		return nil, nil
	}
	return f, nil
}

func (m *memFurnitureRepo) ListByAccount(context.Context, string) ([]model.Furniture, error) {
	return nil, nil
}
func (m *memFurnitureRepo) Create(context.Context, model.CreateFurnitureParams) (*model.Furniture, error) {
	return nil, nil
}
func (m *memFurnitureRepo) WithTx(*sqlx.Tx) repository.FurnitureRepository { return m }

type pairKey struct {
	roomID, furnitureID int64
}

type memCellRepo struct {
	mu    sync.Mutex
	cells map[string]*model.StorageCellDetail
	maxes map[pairKey]int
	next  int64
}

func newMemCellRepo() *memCellRepo {
	return &memCellRepo{cells: map[string]*model.StorageCellDetail{}, maxes: map[pairKey]int{}}
}

func (m *memCellRepo) MaxCellNumber(_ context.Context, roomID, furnitureID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxes[pairKey{roomID, furnitureID}], nil
}

func (m *memCellRepo) Create(_ context.Context, params model.CreateStorageCellParams) (*model.StorageCell, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.cells[params.CellCode]; exists {
		return nil, fmt.Errorf("duplicate cell code %s", params.CellCode)
	}
	m.next++
	cell := model.StorageCell{
		ID:          m.next,
		AccountID:   params.AccountID,
		RoomID:      params.RoomID,
		FurnitureID: params.FurnitureID,
		CellNumber:  params.CellNumber,
		CellCode:    params.CellCode,
	}
	m.cells[params.CellCode] = &model.StorageCellDetail{StorageCell: cell}
	key := pairKey{params.RoomID, params.FurnitureID}
	if params.CellNumber > m.maxes[key] {
		m.maxes[key] = params.CellNumber
	}
	return &cell, nil
}

func (m *memCellRepo) FindByCode(_ context.Context, accountID, cellCode string) (*model.StorageCellDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cell, ok := m.cells[cellCode]
	if !ok || cell.AccountID != accountID {
		return nil, nil
	}
	return cell, nil
}

func (m *memCellRepo) FindByID(_ context.Context, accountID string, id int64) (*model.StorageCellDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cell := range m.cells {
		if cell.ID == id && cell.AccountID == accountID {
			return cell, nil
		}
	}
	return nil, nil
}

func (m *memCellRepo) ListByAccount(context.Context, string) ([]model.StorageCellDetail, error) {
	return nil, nil
}
func (m *memCellRepo) WithTx(*sqlx.Tx) repository.StorageCellRepository { return m }

const testAccount = "11111111-1111-1111-1111-111111111111"

func newTestAllocator(items *memItemRepo, rooms *memRoomRepo, furniture *memFurnitureRepo, cells *memCellRepo) *AllocatorService {
	return NewAllocatorService(fakeTxRunner{}, items, rooms, furniture, cells)
}

func TestComposeCellCode(t *testing.T) {
	assert.Equal(t, "A3001", ComposeCellCode("A", 3, 1))
	assert.Equal(t, "B12045", ComposeCellCode("B", 12, 45))
	assert.Equal(t, "Z1999", ComposeCellCode("Z", 1, 999))
}

func TestAllocateItemCode(t *testing.T) {
	itemCodePattern := regexp.MustCompile(`^ITEM-\d{8}-\d{5}$`)

	t.Run("matches the documented format", func(t *testing.T) {
		allocator := newTestAllocator(newMemItemRepo(), newMemRoomRepo(), newMemFurnitureRepo(), newMemCellRepo())

		code, err := allocator.AllocateItemCode(context.Background())
		require.NoError(t, err)
		assert.True(t, itemCodePattern.MatchString(code), "unexpected code format: %s", code)
	})

	t.Run("re-rolls on collision with an existing code", func(t *testing.T) {
		items := newMemItemRepo()
		// Pre-claim a slice of the suffix space; allocation must still
		// find a free code.
		for n := 10000; n < 19000; n++ {
			items.codes[fmt.Sprintf("ITEM-%s-%d", timeNowDateStamp(), n)] = true
		}

		allocator := newTestAllocator(items, newMemRoomRepo(), newMemFurnitureRepo(), newMemCellRepo())
		code, err := allocator.AllocateItemCode(context.Background())
		require.NoError(t, err)
		assert.False(t, items.codes[code], "allocated code was already taken: %s", code)
	})

	t.Run("fails with DUPLICATE_CODE when the suffix space is exhausted", func(t *testing.T) {
		items := newMemItemRepo()
		for n := 10000; n <= 99999; n++ {
			items.codes[fmt.Sprintf("ITEM-%s-%d", timeNowDateStamp(), n)] = true
		}

		allocator := newTestAllocator(items, newMemRoomRepo(), newMemFurnitureRepo(), newMemCellRepo())
		_, err := allocator.AllocateItemCode(context.Background())
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDuplicateCode))
	})

	t.Run("concurrent deposits never share a code", func(t *testing.T) {
		items := newMemItemRepo()
		allocator := newTestAllocator(items, newMemRoomRepo(), newMemFurnitureRepo(), newMemCellRepo())
		itemService := NewItemService(allocator, items, nopLabelRepo{}, testCodec())

		const workers = 32
		results := make(chan string, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				result, err := itemService.Deposit(context.Background(), testAccount, fmt.Sprintf("item %d", i))
				assert.NoError(t, err)
				if result != nil {
					results <- result.Item.Code
				}
			}(i)
		}
		wg.Wait()
		close(results)

		seen := make(map[string]bool)
		for code := range results {
			assert.False(t, seen[code], "duplicate item code allocated: %s", code)
			seen[code] = true
		}
		assert.Len(t, seen, workers)
	})
}

func TestAllocateStorageCell(t *testing.T) {
	t.Run("first allocation assigns letter A and cell 001", func(t *testing.T) {
		rooms := newMemRoomRepo(&model.Room{ID: 1, AccountID: testAccount, Name: "Bedroom"})
		furniture := newMemFurnitureRepo(&model.Furniture{ID: 3, AccountID: testAccount, Name: "Wardrobe"})
		allocator := newTestAllocator(newMemItemRepo(), rooms, furniture, newMemCellRepo())

		cell, err := allocator.AllocateStorageCell(context.Background(), testAccount, 1, 3)
		require.NoError(t, err)
		assert.Equal(t, "A3001", cell.CellCode)
		assert.Equal(t, 1, cell.CellNumber)
		require.NotNil(t, rooms.rooms[1].Letter)
		assert.Equal(t, "A", *rooms.rooms[1].Letter)

		second, err := allocator.AllocateStorageCell(context.Background(), testAccount, 1, 3)
		require.NoError(t, err)
		assert.Equal(t, "A3002", second.CellCode)
	})

	t.Run("second room takes the next free letter", func(t *testing.T) {
		letterA := "A"
		rooms := newMemRoomRepo(
			&model.Room{ID: 1, AccountID: testAccount, Name: "Bedroom", Letter: &letterA},
			&model.Room{ID: 2, AccountID: testAccount, Name: "Kitchen"},
		)
		furniture := newMemFurnitureRepo(&model.Furniture{ID: 5, AccountID: testAccount, Name: "Cupboard"})
		allocator := newTestAllocator(newMemItemRepo(), rooms, furniture, newMemCellRepo())

		cell, err := allocator.AllocateStorageCell(context.Background(), testAccount, 2, 5)
		require.NoError(t, err)
		assert.Equal(t, "B5001", cell.CellCode)
	})

	t.Run("cell numbers are dense per pair even when pairs interleave", func(t *testing.T) {
		rooms := newMemRoomRepo(&model.Room{ID: 1, AccountID: testAccount, Name: "Bedroom"})
		furniture := newMemFurnitureRepo(
			&model.Furniture{ID: 3, AccountID: testAccount, Name: "Wardrobe"},
			&model.Furniture{ID: 7, AccountID: testAccount, Name: "Dresser"},
		)
		allocator := newTestAllocator(newMemItemRepo(), rooms, furniture, newMemCellRepo())
		ctx := context.Background()

		var wardrobe, dresser []string
		for i := 0; i < 3; i++ {
			c1, err := allocator.AllocateStorageCell(ctx, testAccount, 1, 3)
			require.NoError(t, err)
			wardrobe = append(wardrobe, c1.CellCode)

			c2, err := allocator.AllocateStorageCell(ctx, testAccount, 1, 7)
			require.NoError(t, err)
			dresser = append(dresser, c2.CellCode)
		}

		assert.Equal(t, []string{"A3001", "A3002", "A3003"}, wardrobe)
		assert.Equal(t, []string{"A7001", "A7002", "A7003"}, dresser)
	})

	t.Run("concurrent allocations in one pair stay dense", func(t *testing.T) {
		rooms := newMemRoomRepo(&model.Room{ID: 1, AccountID: testAccount, Name: "Bedroom"})
		furniture := newMemFurnitureRepo(&model.Furniture{ID: 3, AccountID: testAccount, Name: "Wardrobe"})
		cells := newMemCellRepo()
		allocator := newTestAllocator(newMemItemRepo(), rooms, furniture, cells)

		const workers = 16
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := allocator.AllocateStorageCell(context.Background(), testAccount, 1, 3)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		numbers := make(map[int]bool)
		for _, cell := range cells.cells {
			numbers[cell.CellNumber] = true
		}
		require.Len(t, numbers, workers)
		for n := 1; n <= workers; n++ {
			assert.True(t, numbers[n], "missing cell number %d", n)
		}
	})

	t.Run("concurrent first cells in different rooms get distinct letters", func(t *testing.T) {
		const roomCount = 8
		var seeded []*model.Room
		for i := 0; i < roomCount; i++ {
			seeded = append(seeded, &model.Room{
				ID:        int64(i + 1),
				AccountID: testAccount,
				Name:      fmt.Sprintf("Room %d", i+1),
			})
		}

		rooms := newMemRoomRepo(seeded...)
		furniture := newMemFurnitureRepo(&model.Furniture{ID: 1, AccountID: testAccount, Name: "Box"})
		allocator := newTestAllocator(newMemItemRepo(), rooms, furniture, newMemCellRepo())

		var wg sync.WaitGroup
		for i := 0; i < roomCount; i++ {
			wg.Add(1)
			go func(roomID int64) {
				defer wg.Done()
				_, err := allocator.AllocateStorageCell(context.Background(), testAccount, roomID, 1)
				assert.NoError(t, err)
			}(int64(i + 1))
		}
		wg.Wait()

		letters := make(map[string]bool)
		for _, room := range rooms.rooms {
			require.NotNil(t, room.Letter, "room %d has no letter", room.ID)
			letters[*room.Letter] = true
		}
		assert.Len(t, letters, roomCount)
	})

	t.Run("27th room exhausts the letter namespace", func(t *testing.T) {
		var seeded []*model.Room
		for i := 0; i < 26; i++ {
			letter := string(rune('A' + i))
			seeded = append(seeded, &model.Room{
				ID:        int64(i + 1),
				AccountID: testAccount,
				Name:      fmt.Sprintf("Room %d", i+1),
				Letter:    &letter,
			})
		}
		seeded = append(seeded, &model.Room{ID: 27, AccountID: testAccount, Name: "Attic"})

		rooms := newMemRoomRepo(seeded...)
		furniture := newMemFurnitureRepo(&model.Furniture{ID: 1, AccountID: testAccount, Name: "Box"})
		allocator := newTestAllocator(newMemItemRepo(), rooms, furniture, newMemCellRepo())

		_, err := allocator.AllocateStorageCell(context.Background(), testAccount, 27, 1)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeExhaustedNamespace))
	})

	t.Run("unknown room fails without writes", func(t *testing.T) {
		cells := newMemCellRepo()
		allocator := newTestAllocator(newMemItemRepo(), newMemRoomRepo(), newMemFurnitureRepo(), cells)

		_, err := allocator.AllocateStorageCell(context.Background(), testAccount, 99, 1)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
		assert.Empty(t, cells.cells)
	})

	t.Run("other account's room is invisible", func(t *testing.T) {
		rooms := newMemRoomRepo(&model.Room{ID: 1, AccountID: "someone-else", Name: "Bedroom"})
		allocator := newTestAllocator(newMemItemRepo(), rooms, newMemFurnitureRepo(), newMemCellRepo())

		_, err := allocator.AllocateStorageCell(context.Background(), testAccount, 1, 1)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
	})
}
