package model

// User はプレースホルダーAPIの /users が返すユーザーレコード。
type User struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Address  Address `json:"address"`
	Phone    string  `json:"phone"`
	Website  string  `json:"website"`
}

// Address はユーザーの住所。
type Address struct {
	Street  string `json:"street"`
	Suite   string `json:"suite"`
	City    string `json:"city"`
	Zipcode string `json:"zipcode"`
}

// Album はプレースホルダーAPIの /albums が返すアルバムレコード。
type Album struct {
	ID     int    `json:"id"`
	UserID int    `json:"userId"`
	Title  string `json:"title"`
}

// Photo はプレースホルダーAPIの /photos が返す写真レコード。
type Photo struct {
	ID           int    `json:"id"`
	AlbumID      int    `json:"albumId"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// Resource はリストビューが扱うリモートコレクションの種別を表す。
type Resource string

const (
	// ResourceUsers はユーザー一覧。
	ResourceUsers Resource = "users"
	// ResourceAlbums はアルバム一覧。
	ResourceAlbums Resource = "albums"
	// ResourcePhotos は写真一覧。
	ResourcePhotos Resource = "photos"
)

// LoadingMessage はフェッチ中に表示する文言を返す。
func (r Resource) LoadingMessage() string {
	return "Loading " + string(r) + "..."
}

// FetchErrorMessage はフェッチ失敗時に表示する固定文言を返す。
func (r Resource) FetchErrorMessage() string {
	return "Failed to fetch " + string(r) + "."
}

// EmptyMessage は該当データがない場合に表示する固定文言を返す。
func (r Resource) EmptyMessage() string {
	return "No " + string(r) + " found."
}
