package cartsync

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// エラー表示の自動クリアまでの既定時間
const defaultErrClearAfter = 5 * time.Second

// Store はカート同期エンジンの唯一のステートフルな部品。
// サーバが返したSnapshotをそのまま正として保持し、
// 失敗時はDecideに従って最大1回だけ自己修復を試みる。
//
// 操作はopMuで直列化する（1プリンシパルにつき同時実行1つ）。
// 読み取りはstateMuだけを取るので、通信中でもブロックしない。
type Store struct {
	transport Transport
	notifier  Notifier

	opMu sync.Mutex

	stateMu   sync.Mutex
	principal string
	snapshot  Snapshot
	lastErr   *OperationError
	loading   bool

	errClearAfter time.Duration
	errTimer      *time.Timer
}

func NewStore(transport Transport, notifier Notifier) *Store {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Store{
		transport:     transport,
		notifier:      notifier,
		errClearAfter: defaultErrClearAfter,
	}
}

// SetPrincipal はログイン/ログアウト/ユーザー切替の遷移。
// 前のユーザーのSnapshotは破棄する（マージしない）。
func (s *Store) SetPrincipal(principal string) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.principal = principal
	s.snapshot = Snapshot{}
	s.lastErr = nil
	s.stopErrTimerLocked()
}

// =====================
// 読み取り（毎回計算、キャッシュなし）
// =====================

func (s *Store) Items() []LineItem {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	items := make([]LineItem, len(s.snapshot.Items))
	copy(items, s.snapshot.Items)
	return items
}

func (s *Store) Count() int64 {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.snapshot.Count()
}

func (s *Store) Total() int64 {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.snapshot.Total()
}

func (s *Store) LastError() *OperationError {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.lastErr
}

func (s *Store) Loading() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.loading
}

// =====================
// 公開操作
// =====================

// Fetch はサーバのカートでSnapshotを置き換える。リトライなし。
// プリンシパル未設定なら通信せず空にするだけ。
func (s *Store) Fetch(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.setLoading(true)
	defer s.setLoading(false)

	return s.fetch(ctx)
}

// Add は商品を数量1でupsertする。
// 成功後は必ずfetchし直してサーバ側の副作用まで反映する。
func (s *Store) Add(ctx context.Context, productRef string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.setLoading(true)
	defer s.setLoading(false)

	if oe := s.validate(productRef); oe != nil {
		s.reportError(oe)
		return oe
	}

	snap, err := s.transport.UpsertItem(ctx, s.currentPrincipal(), productRef, 1)
	if err != nil {
		oe := toOperationError(err)
		s.reportError(oe)
		return oe
	}

	s.replaceSnapshot(snap)
	s.clearError()
	s.notifier.Notify(LevelSuccess, "added to cart")

	_ = s.fetch(ctx)
	return nil
}

// Remove は明細を削除する。失敗してもリトライしない。
func (s *Store) Remove(ctx context.Context, productRef string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.setLoading(true)
	defer s.setLoading(false)

	if oe := s.validate(productRef); oe != nil {
		s.reportError(oe)
		return oe
	}

	snap, err := s.transport.DeleteItem(ctx, s.currentPrincipal(), productRef)
	if err != nil {
		oe := toOperationError(err)
		s.reportError(oe)
		return oe
	}

	s.replaceSnapshot(snap)
	s.notifier.Notify(LevelSuccess, "removed from cart")

	_ = s.fetch(ctx)
	return nil
}

// UpdateQuantity は数量を更新する。失敗時だけDecideに従って自己修復を試みる。
// リカバリは元の呼び出し1回につき最大1手で、その失敗はそのまま報告する。
func (s *Store) UpdateQuantity(ctx context.Context, productRef string, quantity int64) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.setLoading(true)
	defer s.setLoading(false)

	if oe := s.validate(productRef); oe != nil {
		s.reportError(oe)
		return oe
	}
	if quantity < 1 {
		oe := NewOperationError(KindInvalidInput, "invalid quantity")
		s.reportError(oe)
		return oe
	}

	principal := s.currentPrincipal()

	snap, err := s.transport.SetQuantity(ctx, principal, productRef, quantity)
	if err == nil {
		s.replaceSnapshot(snap)
		s.notifier.Notify(LevelSuccess, fmt.Sprintf("quantity updated to %d", quantity))
		return nil
	}

	oe := toOperationError(err)

	switch Decide(OpSetQuantity, oe) {
	case ActionRetryAsUpsert:
		// クライアントの「この明細はある」が古かった。新規追加として出し直す
		rsnap, rerr := s.transport.UpsertItem(ctx, principal, productRef, quantity)
		if rerr != nil {
			roe := toOperationError(rerr)
			s.reportError(roe)
			return roe
		}
		s.replaceSnapshot(rsnap)
		s.clearError()
		s.notifier.Notify(LevelInfo, "item was missing, added to cart")
		return nil

	case ActionRecreateThenUpsert:
		// カートがまだ無い。fetchで作らせてからupsertを出し直す
		if _, ferr := s.transport.Fetch(ctx, principal); ferr != nil {
			oe = toOperationError(ferr)
		} else {
			rsnap, rerr := s.transport.UpsertItem(ctx, principal, productRef, quantity)
			if rerr == nil {
				s.replaceSnapshot(rsnap)
				s.clearError()
				s.notifier.Notify(LevelInfo, "cart created, item added")
				return nil
			}
			oe = toOperationError(rerr)
		}
		s.reportError(oe)
		_ = s.fetch(ctx)
		return oe
	}

	// GiveUp: 報告してから必ずfetchし直し、サーバの真実に合わせる
	s.reportError(oe)
	_ = s.fetch(ctx)
	return oe
}

// Clear は全明細を削除する。
func (s *Store) Clear(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.setLoading(true)
	defer s.setLoading(false)

	if s.currentPrincipal() == "" {
		oe := NewOperationError(KindNotAuthenticated, "not authenticated")
		s.reportError(oe)
		return oe
	}

	snap, err := s.transport.DeleteAll(ctx, s.currentPrincipal())
	if err != nil {
		oe := toOperationError(err)
		s.reportError(oe)
		return oe
	}

	s.replaceSnapshot(snap)
	s.notifier.Notify(LevelSuccess, "cart cleared")
	return nil
}

// =====================
// 内部（opMu保持前提）
// =====================

func (s *Store) fetch(ctx context.Context) error {
	principal := s.currentPrincipal()
	if principal == "" {
		s.replaceSnapshot(Snapshot{})
		return nil
	}

	snap, err := s.transport.Fetch(ctx, principal)
	if err != nil {
		oe := toOperationError(err)
		s.replaceSnapshot(Snapshot{})
		s.reportError(oe)
		return oe
	}

	s.replaceSnapshot(snap)
	return nil
}

func (s *Store) validate(productRef string) *OperationError {
	if s.currentPrincipal() == "" {
		return NewOperationError(KindNotAuthenticated, "not authenticated")
	}
	if productRef == "" {
		return NewOperationError(KindInvalidInput, "invalid product ref")
	}
	return nil
}

func (s *Store) currentPrincipal() string {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.principal
}

func (s *Store) replaceSnapshot(snap Snapshot) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.snapshot = snap
}

func (s *Store) setLoading(v bool) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.loading = v
}

// reportError はlastErrを置き、通知し、自動クリアのタイマーを張り直す。
// Snapshotには触らない（エラー表示とカートデータの正しさは別物）。
func (s *Store) reportError(oe *OperationError) {
	s.stateMu.Lock()
	s.lastErr = oe
	s.stopErrTimerLocked()
	s.errTimer = time.AfterFunc(s.errClearAfter, s.clearError)
	s.stateMu.Unlock()

	s.notifier.Notify(LevelError, oe.Message)
}

func (s *Store) clearError() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.lastErr = nil
	s.stopErrTimerLocked()
}

func (s *Store) stopErrTimerLocked() {
	if s.errTimer != nil {
		s.errTimer.Stop()
		s.errTimer = nil
	}
}
