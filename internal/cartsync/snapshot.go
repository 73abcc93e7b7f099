package cartsync

// LineItem はカート明細1行。
// name/price/shop_name はサーバが商品から転記したスナップショット。
type LineItem struct {
	ProductRef string `json:"product_ref"`
	Name       string `json:"name"`
	Price      int64  `json:"price"`
	ShopName   string `json:"shop_name"`
	Quantity   int64  `json:"quantity"`
}

// Snapshot はサーバが最後に返したカート全体。
// 同一ProductRefは1行までで、個数はQuantityで表す。
// 成功レスポンスのたびに丸ごと差し替え、部分マージはしない。
type Snapshot struct {
	Items []LineItem `json:"items"`
}

// Count は個数合計。毎回計算する（キャッシュしない）。
func (s Snapshot) Count() int64 {
	var n int64 = 0
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}

// Total は金額合計（price × quantity）。毎回計算する。
func (s Snapshot) Total() int64 {
	var total int64 = 0
	for _, it := range s.Items {
		total += it.Price * it.Quantity
	}
	return total
}
