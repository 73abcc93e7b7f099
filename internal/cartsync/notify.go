package cartsync

// 通知レベル（UIのトースト相当）
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notifier はユーザー向けの結果報告先。
// Storeは終端の結果1件につき1回だけ呼ぶ。
type Notifier interface {
	Notify(level Level, message string)
}

// 通知を捨てる実装
type NopNotifier struct{}

func (NopNotifier) Notify(Level, string) {}

// 関数をNotifierにするアダプタ
type NotifierFunc func(level Level, message string)

func (f NotifierFunc) Notify(level Level, message string) {
	f(level, message)
}
