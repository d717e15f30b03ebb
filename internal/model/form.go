package model

// FormStatus は認証フォームの状態を表す。
type FormStatus string

const (
	// FormIdle は入力待ち状態。
	FormIdle FormStatus = "idle"
	// FormSubmitting はIdPへの送信中状態。
	FormSubmitting FormStatus = "submitting"
	// FormSucceeded は送信成功状態。
	FormSucceeded FormStatus = "succeeded"
)

// FormState は認証フォーム（ログイン、登録、パスワードリセット）の状態遷移を保持する。
// リクエストごとに生成し、Statusは描画時にフォームのdata-status属性へ出力する。
//
//	idle → submitting → (succeeded | failed)
//
// failedはエラー文言を保持したままidleに戻る。文言は次回の送信開始まで残る。
type FormState struct {
	Status FormStatus
	Error  string
	Notice string
}

// NewFormState はidle状態のFormStateを返す。
func NewFormState() *FormState {
	return &FormState{Status: FormIdle}
}

// Submit は送信を開始する。前回のエラー文言と通知はここでクリアされる。
func (f *FormState) Submit() {
	f.Status = FormSubmitting
	f.Error = ""
	f.Notice = ""
}

// Succeed は送信成功を記録する。
func (f *FormState) Succeed(notice string) {
	f.Status = FormSucceeded
	f.Notice = notice
}

// Fail は送信失敗を記録し、エラー文言を保持したままidleに戻す。
func (f *FormState) Fail(message string) {
	f.Status = FormIdle
	f.Error = message
}

// Reject は送信前のバリデーション失敗を記録する。Submitを経由しない。
func (f *FormState) Reject(message string) {
	f.Status = FormIdle
	f.Error = message
	f.Notice = ""
}
