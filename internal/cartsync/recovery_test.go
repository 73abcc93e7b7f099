package cartsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	cases := []struct {
		name string
		op   Op
		err  *OperationError
		want Action
	}{
		{
			name: "数量更新で明細が消えていたらupsertとして出し直す",
			op:   OpSetQuantity,
			err:  NewOperationError(KindItemNotFound, "x"),
			want: ActionRetryAsUpsert,
		},
		{
			name: "数量更新でカートが無ければ作らせてから出し直す",
			op:   OpSetQuantity,
			err:  NewOperationError(KindCartNotFound, "x"),
			want: ActionRecreateThenUpsert,
		},
		{
			name: "数量更新でもTransientは自動リカバリしない",
			op:   OpSetQuantity,
			err:  NewOperationError(KindTransient, "x"),
			want: ActionGiveUp,
		},
		{
			name: "数量更新でも入力エラーはそのまま返す",
			op:   OpSetQuantity,
			err:  NewOperationError(KindInvalidInput, "x"),
			want: ActionGiveUp,
		},
		{
			name: "追加のItemNotFoundはリカバリ対象外",
			op:   OpUpsertItem,
			err:  NewOperationError(KindItemNotFound, "x"),
			want: ActionGiveUp,
		},
		{
			name: "fetchのCartNotFoundはリカバリ対象外",
			op:   OpFetch,
			err:  NewOperationError(KindCartNotFound, "x"),
			want: ActionGiveUp,
		},
		{
			name: "削除の失敗はリカバリ対象外",
			op:   OpDeleteItem,
			err:  NewOperationError(KindTransient, "x"),
			want: ActionGiveUp,
		},
		{
			name: "エラーなしはGiveUp扱い",
			op:   OpSetQuantity,
			err:  nil,
			want: ActionGiveUp,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.op, tc.err))
		})
	}
}
