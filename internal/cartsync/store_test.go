package cartsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// Mocks
// =====================

type TransportMock struct{ mock.Mock }

func (m *TransportMock) Fetch(ctx context.Context, principal string) (Snapshot, error) {
	args := m.Called(ctx, principal)
	snap, _ := args.Get(0).(Snapshot)
	return snap, args.Error(1)
}

func (m *TransportMock) UpsertItem(ctx context.Context, principal string, productRef string, quantity int64) (Snapshot, error) {
	args := m.Called(ctx, principal, productRef, quantity)
	snap, _ := args.Get(0).(Snapshot)
	return snap, args.Error(1)
}

func (m *TransportMock) SetQuantity(ctx context.Context, principal string, productRef string, quantity int64) (Snapshot, error) {
	args := m.Called(ctx, principal, productRef, quantity)
	snap, _ := args.Get(0).(Snapshot)
	return snap, args.Error(1)
}

func (m *TransportMock) DeleteItem(ctx context.Context, principal string, productRef string) (Snapshot, error) {
	args := m.Called(ctx, principal, productRef)
	snap, _ := args.Get(0).(Snapshot)
	return snap, args.Error(1)
}

func (m *TransportMock) DeleteAll(ctx context.Context, principal string) (Snapshot, error) {
	args := m.Called(ctx, principal)
	snap, _ := args.Get(0).(Snapshot)
	return snap, args.Error(1)
}

type notifyEvent struct {
	level   Level
	message string
}

type NotifySpy struct {
	mu     sync.Mutex
	events []notifyEvent
}

func (s *NotifySpy) Notify(level Level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, notifyEvent{level: level, message: message})
}

func (s *NotifySpy) Events() []notifyEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notifyEvent, len(s.events))
	copy(out, s.events)
	return out
}

func snapWith(items ...LineItem) Snapshot {
	return Snapshot{Items: items}
}

// =====================
// Fetch
// =====================

func TestStore_Fetch_NoPrincipal(t *testing.T) {
	tr := new(TransportMock)
	store := NewStore(tr, nil)

	err := store.Fetch(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, store.Items())
	tr.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestStore_Fetch_Idempotent(t *testing.T) {
	tr := new(TransportMock)
	store := NewStore(tr, nil)
	store.SetPrincipal("u1")

	snap := snapWith(LineItem{ProductRef: "p1", Price: 10, Quantity: 2})
	tr.On("Fetch", mock.Anything, "u1").Return(snap, nil)

	assert.NoError(t, store.Fetch(context.Background()))
	first := store.Items()
	assert.NoError(t, store.Fetch(context.Background()))
	second := store.Items()

	assert.Equal(t, first, second)
	tr.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestStore_Fetch_FailureClearsSnapshot(t *testing.T) {
	tr := new(TransportMock)
	spy := new(NotifySpy)
	store := NewStore(tr, spy)
	store.SetPrincipal("u1")

	tr.On("Fetch", mock.Anything, "u1").
		Return(snapWith(LineItem{ProductRef: "p1", Price: 10, Quantity: 1}), nil).Once()
	tr.On("Fetch", mock.Anything, "u1").
		Return(Snapshot{}, NewOperationError(KindTransient, "boom")).Once()

	assert.NoError(t, store.Fetch(context.Background()))
	assert.Len(t, store.Items(), 1)

	err := store.Fetch(context.Background())
	assert.Error(t, err)
	assert.Empty(t, store.Items())
	assert.NotNil(t, store.LastError())
	assert.Equal(t, KindTransient, store.LastError().Kind)

	events := spy.Events()
	assert.Len(t, events, 1)
	assert.Equal(t, LevelError, events[0].level)
}

// =====================
// Add
// =====================

func TestStore_Add_NoPrincipal(t *testing.T) {
	tr := new(TransportMock)
	spy := new(NotifySpy)
	store := NewStore(tr, spy)

	err := store.Add(context.Background(), "p1")

	oe, ok := AsOperationError(err)
	assert.True(t, ok)
	assert.Equal(t, KindNotAuthenticated, oe.Kind)

	//リモート呼び出しゼロ
	tr.AssertNotCalled(t, "UpsertItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	tr.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	assert.Len(t, spy.Events(), 1)
}

func TestStore_Add_EmptyRef(t *testing.T) {
	tr := new(TransportMock)
	store := NewStore(tr, nil)
	store.SetPrincipal("u1")

	err := store.Add(context.Background(), "")

	oe, ok := AsOperationError(err)
	assert.True(t, ok)
	assert.Equal(t, KindInvalidInput, oe.Kind)
	tr.AssertNotCalled(t, "UpsertItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStore_Add_SuccessRefetches(t *testing.T) {
	tr := new(TransportMock)
	spy := new(NotifySpy)
	store := NewStore(tr, spy)
	store.SetPrincipal("u1")

	upserted := snapWith(LineItem{ProductRef: "p1", Price: 10, Quantity: 1})
	refetched := snapWith(LineItem{ProductRef: "p1", Name: "A", Price: 10, Quantity: 1})

	tr.On("UpsertItem", mock.Anything, "u1", "p1", int64(1)).Return(upserted, nil)
	tr.On("Fetch", mock.Anything, "u1").Return(refetched, nil)

	assert.NoError(t, store.Add(context.Background(), "p1"))

	//最終状態は再fetchの結果
	assert.Equal(t, refetched.Items, store.Items())
	assert.Nil(t, store.LastError())
	tr.AssertNumberOfCalls(t, "UpsertItem", 1)
	tr.AssertNumberOfCalls(t, "Fetch", 1)

	events := spy.Events()
	assert.Len(t, events, 1)
	assert.Equal(t, LevelSuccess, events[0].level)
}

func TestStore_Add_Failure(t *testing.T) {
	tr := new(TransportMock)
	spy := new(NotifySpy)
	store := NewStore(tr, spy)
	store.SetPrincipal("u1")

	tr.On("UpsertItem", mock.Anything, "u1", "p1", int64(1)).
		Return(Snapshot{}, NewOperationError(KindTransient, "boom"))

	err := store.Add(context.Background(), "p1")
	assert.Error(t, err)
	assert.NotNil(t, store.LastError())

	//失敗時は再fetchしない
	tr.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)

	events := spy.Events()
	assert.Len(t, events, 1)
	assert.Equal(t, LevelError, events[0].level)
}

// =====================
// Remove
// =====================

func TestStore_Remove_TransientFailureLeavesSnapshot(t *testing.T) {
	tr := new(TransportMock)
	spy := new(NotifySpy)
	store := NewStore(tr, spy)
	store.SetPrincipal("u1")

	seeded := snapWith(LineItem{ProductRef: "p1", Price: 10, Quantity: 2})
	tr.On("Fetch", mock.Anything, "u1").Return(seeded, nil).Once()
	assert.NoError(t, store.Fetch(context.Background()))

	tr.On("DeleteItem", mock.Anything, "u1", "p1").
		Return(Snapshot{}, NewOperationError(KindTransient, "status 500"))

	err := store.Remove(context.Background(), "p1")
	assert.Error(t, err)

	//Snapshotはそのまま、リトライなし
	assert.Equal(t, seeded.Items, store.Items())
	tr.AssertNumberOfCalls(t, "DeleteItem", 1)
	tr.AssertNumberOfCalls(t, "Fetch", 1)

	events := spy.Events()
	assert.Len(t, events, 1)
	assert.Equal(t, LevelError, events[0].level)
}

func TestStore_Remove_SuccessRefetches(t *testing.T) {
	tr := new(TransportMock)
	store := NewStore(tr, nil)
	store.SetPrincipal("u1")

	tr.On("DeleteItem", mock.Anything, "u1", "p1").Return(Snapshot{}, nil)
	tr.On("Fetch", mock.Anything, "u1").Return(Snapshot{}, nil)

	assert.NoError(t, store.Remove(context.Background(), "p1"))
	assert.Empty(t, store.Items())
	tr.AssertNumberOfCalls(t, "Fetch", 1)
}

// =====================
// UpdateQuantity
// =====================

func TestStore_UpdateQuantity_Success(t *testing.T) {
	tr := new(TransportMock)
	spy := new(NotifySpy)
	store := NewStore(tr, spy)
	store.SetPrincipal("u1")

	updated := snapWith(LineItem{ProductRef: "p1", Price: 10, Quantity: 3})
	tr.On("SetQuantity", mock.Anything, "u1", "p1", int64(3)).Return(updated, nil)

	assert.NoError(t, store.UpdateQuantity(context.Background(), "p1", 3))
	assert.Equal(t, updated.Items, store.Items())

	events := spy.Events()
	assert.Len(t, events, 1)
	assert.Equal(t, LevelSuccess, events[0].level)
}

func TestStore_UpdateQuantity_InvalidQuantity(t *testing.T) {
	tr := new(TransportMock)
	store := NewStore(tr, nil)
	store.SetPrincipal("u1")

	err := store.UpdateQuantity(context.Background(), "p1", 0)

	oe, ok := AsOperationError(err)
	assert.True(t, ok)
	assert.Equal(t, KindInvalidInput, oe.Kind)
	tr.AssertNotCalled(t, "SetQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStore_UpdateQuantity_ItemMissingRepaired(t *testing.T) {
	tr := new(TransportMock)
	spy := new(NotifySpy)
	store := NewStore(tr, spy)
	store.SetPrincipal("u1")

	repaired := snapWith(LineItem{ProductRef: "p1", Price: 10, Quantity: 3})

	tr.On("SetQuantity", mock.Anything, "u1", "p1", int64(3)).
		Return(Snapshot{}, NewOperationError(KindItemNotFound, "Item not found in cart"))
	//元の要求数量でupsertし直す
	tr.On("UpsertItem", mock.Anything, "u1", "p1", int64(3)).Return(repaired, nil)

	assert.NoError(t, store.UpdateQuantity(context.Background(), "p1", 3))
	assert.Equal(t, repaired.Items, store.Items())
	assert.Nil(t, store.LastError())

	//追加のリモート呼び出しはupsert1回だけ
	tr.AssertNumberOfCalls(t, "SetQuantity", 1)
	tr.AssertNumberOfCalls(t, "UpsertItem", 1)
	tr.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)

	//通知はinfoが1件だけ
	events := spy.Events()
	assert.Len(t, events, 1)
	assert.Equal(t, LevelInfo, events[0].level)
	assert.Equal(t, "item was missing, added to cart", events[0].message)
}

func TestStore_UpdateQuantity_RepairFailureStops(t *testing.T) {
	tr := new(TransportMock)
	spy := new(NotifySpy)
	store := NewStore(tr, spy)
	store.SetPrincipal("u1")

	tr.On("SetQuantity", mock.Anything, "u1", "p1", int64(2)).
		Return(Snapshot{}, NewOperationError(KindItemNotFound, "Item not found in cart"))
	tr.On("UpsertItem", mock.Anything, "u1", "p1", int64(2)).
		Return(Snapshot{}, NewOperationError(KindTransient, "boom"))

	err := store.UpdateQuantity(context.Background(), "p1", 2)
	assert.Error(t, err)

	//リカバリは1回で打ち切り。ループしない
	tr.AssertNumberOfCalls(t, "SetQuantity", 1)
	tr.AssertNumberOfCalls(t, "UpsertItem", 1)
	tr.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)

	events := spy.Events()
	assert.Len(t, events, 1)
	assert.Equal(t, LevelError, events[0].level)
}

func TestStore_UpdateQuantity_CartMissingRepaired(t *testing.T) {
	tr := new(TransportMock)
	spy := new(NotifySpy)
	store := NewStore(tr, spy)
	store.SetPrincipal("u1")

	repaired := snapWith(LineItem{ProductRef: "p2", Price: 5, Quantity: 1})

	tr.On("SetQuantity", mock.Anything, "u1", "p2", int64(1)).
		Return(Snapshot{}, NewOperationError(KindCartNotFound, "Cart not found"))
	//fetchでカートを作らせてからupsert
	tr.On("Fetch", mock.Anything, "u1").Return(Snapshot{}, nil)
	tr.On("UpsertItem", mock.Anything, "u1", "p2", int64(1)).Return(repaired, nil)

	assert.NoError(t, store.UpdateQuantity(context.Background(), "p2", 1))
	assert.Equal(t, repaired.Items, store.Items())

	tr.AssertNumberOfCalls(t, "Fetch", 1)
	tr.AssertNumberOfCalls(t, "UpsertItem", 1)

	events := spy.Events()
	assert.Len(t, events, 1)
	assert.Equal(t, LevelInfo, events[0].level)
	assert.Equal(t, "cart created, item added", events[0].message)
}

func TestStore_UpdateQuantity_GiveUpResyncs(t *testing.T) {
	tr := new(TransportMock)
	spy := new(NotifySpy)
	store := NewStore(tr, spy)
	store.SetPrincipal("u1")

	serverTruth := snapWith(LineItem{ProductRef: "p1", Price: 10, Quantity: 1})

	tr.On("SetQuantity", mock.Anything, "u1", "p1", int64(5)).
		Return(Snapshot{}, NewOperationError(KindTransient, "status 500"))
	tr.On("Fetch", mock.Anything, "u1").Return(serverTruth, nil)

	err := store.UpdateQuantity(context.Background(), "p1", 5)
	assert.Error(t, err)

	//報告のあとfetch1回で必ず同期し直す
	tr.AssertNumberOfCalls(t, "Fetch", 1)
	tr.AssertNotCalled(t, "UpsertItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, serverTruth.Items, store.Items())
	assert.Equal(t, KindTransient, store.LastError().Kind)

	events := spy.Events()
	assert.Len(t, events, 1)
	assert.Equal(t, LevelError, events[0].level)
}

// =====================
// Clear / エラー表示 / プリンシパル切替
// =====================

func TestStore_Clear_Success(t *testing.T) {
	tr := new(TransportMock)
	spy := new(NotifySpy)
	store := NewStore(tr, spy)
	store.SetPrincipal("u1")

	tr.On("DeleteAll", mock.Anything, "u1").Return(Snapshot{}, nil)

	assert.NoError(t, store.Clear(context.Background()))
	assert.Empty(t, store.Items())

	events := spy.Events()
	assert.Len(t, events, 1)
	assert.Equal(t, LevelSuccess, events[0].level)
}

func TestStore_ErrorAutoClears(t *testing.T) {
	tr := new(TransportMock)
	store := NewStore(tr, nil)
	store.SetPrincipal("u1")
	store.errClearAfter = 20 * time.Millisecond

	seeded := snapWith(LineItem{ProductRef: "p1", Price: 10, Quantity: 1})
	tr.On("Fetch", mock.Anything, "u1").Return(seeded, nil).Once()
	assert.NoError(t, store.Fetch(context.Background()))

	tr.On("DeleteAll", mock.Anything, "u1").
		Return(Snapshot{}, NewOperationError(KindTransient, "boom"))
	assert.Error(t, store.Clear(context.Background()))
	assert.NotNil(t, store.LastError())

	//表示ウィンドウを過ぎたらエラーだけ消え、Snapshotは変わらない
	assert.Eventually(t, func() bool {
		return store.LastError() == nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, seeded.Items, store.Items())
}

func TestStore_NewErrorReschedulesClear(t *testing.T) {
	tr := new(TransportMock)
	store := NewStore(tr, nil)
	store.SetPrincipal("u1")
	store.errClearAfter = 50 * time.Millisecond

	tr.On("DeleteAll", mock.Anything, "u1").
		Return(Snapshot{}, NewOperationError(KindTransient, "first")).Once()
	tr.On("DeleteAll", mock.Anything, "u1").
		Return(Snapshot{}, NewOperationError(KindTransient, "second")).Once()

	assert.Error(t, store.Clear(context.Background()))
	time.Sleep(30 * time.Millisecond)
	assert.Error(t, store.Clear(context.Background()))

	//2件目が来た時点でタイマーは張り直されている
	time.Sleep(30 * time.Millisecond)
	if assert.NotNil(t, store.LastError()) {
		assert.Equal(t, "second", store.LastError().Message)
	}

	assert.Eventually(t, func() bool {
		return store.LastError() == nil
	}, time.Second, 5*time.Millisecond)
}

func TestStore_SetPrincipal_ResetsSnapshot(t *testing.T) {
	tr := new(TransportMock)
	store := NewStore(tr, nil)
	store.SetPrincipal("u1")

	tr.On("Fetch", mock.Anything, "u1").
		Return(snapWith(LineItem{ProductRef: "p1", Price: 10, Quantity: 2}), nil)
	assert.NoError(t, store.Fetch(context.Background()))
	assert.Len(t, store.Items(), 1)

	//ユーザー切替で前のカートは破棄
	store.SetPrincipal("u2")
	assert.Empty(t, store.Items())
	assert.Nil(t, store.LastError())
}
