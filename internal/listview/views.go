package listview

import (
	"context"
	"log/slog"

	"github.com/hitoshi/albumdeck/internal/model"
)

// Source はリストビューが参照するリモートコレクション。
type Source interface {
	FetchUsers(ctx context.Context) ([]model.User, error)
	FetchAlbums(ctx context.Context) ([]model.Album, error)
	FetchPhotos(ctx context.Context) ([]model.Photo, error)
}

// MatchUser は名前・メールアドレスの部分一致、またはIDの部分一致を判定する。
func MatchUser(u model.User, q string) bool {
	return containsFold(u.Name, q) || containsFold(u.Email, q) || idContains(u.ID, q)
}

// MatchAlbum はタイトルまたはIDの部分一致を判定する。
func MatchAlbum(a model.Album, q string) bool {
	return containsFold(a.Title, q) || idContains(a.ID, q)
}

// MatchPhoto はタイトルまたはIDの部分一致を判定する。
func MatchPhoto(p model.Photo, q string) bool {
	return containsFold(p.Title, q) || idContains(p.ID, q)
}

// NewUsersView はユーザー一覧のビューを生成する。
func NewUsersView(src Source, pageSize int, logger *slog.Logger) *View[model.User] {
	return NewView(model.ResourceUsers, pageSize, src.FetchUsers, MatchUser, logger)
}

// NewAlbumsView はアルバム一覧のビューを生成する。
func NewAlbumsView(src Source, pageSize int, logger *slog.Logger) *View[model.Album] {
	return NewView(model.ResourceAlbums, pageSize, src.FetchAlbums, MatchAlbum, logger)
}

// NewPhotosView は写真一覧のビューを生成する。
// albumIDが0より大きい場合は、取得した全件からそのアルバムの写真だけを残す。
func NewPhotosView(src Source, pageSize, albumID int, logger *slog.Logger) *View[model.Photo] {
	fetch := src.FetchPhotos
	if albumID > 0 {
		fetch = func(ctx context.Context) ([]model.Photo, error) {
			photos, err := src.FetchPhotos(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]model.Photo, 0, len(photos))
			for _, p := range photos {
				if p.AlbumID == albumID {
					out = append(out, p)
				}
			}
			return out, nil
		}
	}
	return NewView(model.ResourcePhotos, pageSize, fetch, MatchPhoto, logger)
}
