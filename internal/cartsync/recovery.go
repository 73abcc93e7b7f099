package cartsync

// Op は試行したリモート操作。
type Op string

const (
	OpFetch       Op = "fetch"
	OpUpsertItem  Op = "upsert_item"
	OpSetQuantity Op = "set_quantity"
	OpDeleteItem  Op = "delete_item"
	OpDeleteAll   Op = "delete_all"
)

// Action は失敗1件に対するリカバリ方針。
type Action string

const (
	// 数量更新をupsertとして出し直す（クライアントが見ていた明細が消えていた場合）
	ActionRetryAsUpsert Action = "retry_as_upsert"
	// fetchでカートを作らせてからupsertを出し直す（カート自体がまだ無い場合）
	ActionRecreateThenUpsert Action = "recreate_then_upsert"
	// 自動リカバリしない。呼び出し元へそのまま報告する
	ActionGiveUp Action = "give_up"
)

// Decide は (操作, エラー) からリカバリ方針を決める純関数。
// 自己修復できるのは数量更新の2ケースだけで、それ以外は全部GiveUp。
// リカバリ試行自体の失敗には再適用しない（元の呼び出し1回につき最大1回）。
func Decide(op Op, err *OperationError) Action {
	if err == nil || op != OpSetQuantity {
		return ActionGiveUp
	}

	switch err.Kind {
	case KindItemNotFound:
		return ActionRetryAsUpsert
	case KindCartNotFound:
		return ActionRecreateThenUpsert
	}

	return ActionGiveUp
}
