package handler

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/net/html"

	"github.com/hitoshi/albumdeck/internal/model"
)

// --- HTML ヘルパー ---

func parseHTML(t *testing.T, body io.Reader) *html.Node {
	t.Helper()
	doc, err := html.Parse(body)
	if err != nil {
		t.Fatalf("HTMLのパースに失敗: %v", err)
	}
	return doc
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func byTag(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

func byClass(tag, class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != tag {
			return false
		}
		for _, c := range strings.Fields(attr(n, "class")) {
			if c == class {
				return true
			}
		}
		return false
	}
}

func byID(id string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "id") == id
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func containsText(doc *html.Node, s string) bool {
	return strings.Contains(textOf(doc), s)
}

// button はテキストが一致するbutton要素を返す。
func button(doc *html.Node, text string) *html.Node {
	for _, b := range findAll(doc, byTag("button")) {
		if textOf(b) == text {
			return b
		}
	}
	return nil
}

// listItems はリストページの項目（ul.items の li）を返す。
func listItems(doc *html.Node) []*html.Node {
	uls := findAll(doc, byClass("ul", "items"))
	if len(uls) == 0 {
		return nil
	}
	return findAll(uls[0], byTag("li"))
}

// formStatus は指定IDのフォームのdata-status属性を返す。
func formStatus(doc *html.Node, id string) string {
	forms := findAll(doc, byID(id))
	if len(forms) != 1 {
		return ""
	}
	return attr(forms[0], "data-status")
}

func formRequest(method, target string, values url.Values) *http.Request {
	req, _ := http.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(nil)
	if err != nil {
		t.Fatalf("NewRenderer がエラーを返した: %v", err)
	}
	return r
}

// --- リモートコレクションのフェイク ---

type fakeSource struct {
	users  []model.User
	albums []model.Album
	photos []model.Photo
	err    error

	// gate が非nilの場合、フェッチはgateが閉じられるかctxが終了するまで待つ。
	gate chan struct{}

	userCalls  atomic.Int32
	albumCalls atomic.Int32
	photoCalls atomic.Int32
}

func (f *fakeSource) wait(ctx context.Context) error {
	if f.gate == nil {
		return nil
	}
	select {
	case <-f.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeSource) FetchUsers(ctx context.Context) ([]model.User, error) {
	f.userCalls.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, &model.FetchFailure{Resource: model.ResourceUsers, Cause: f.err}
	}
	return f.users, nil
}

func (f *fakeSource) FetchAlbums(ctx context.Context) ([]model.Album, error) {
	f.albumCalls.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, &model.FetchFailure{Resource: model.ResourceAlbums, Cause: f.err}
	}
	return f.albums, nil
}

func (f *fakeSource) FetchPhotos(ctx context.Context) ([]model.Photo, error) {
	f.photoCalls.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, &model.FetchFailure{Resource: model.ResourcePhotos, Cause: f.err}
	}
	return f.photos, nil
}

func makeUsers(n int) []model.User {
	users := make([]model.User, n)
	for i := range users {
		id := i + 1
		users[i] = model.User{
			ID:      id,
			Name:    "User " + strconv.Itoa(id),
			Email:   "user" + strconv.Itoa(id) + "@example.com",
			Address: model.Address{Street: "Main St " + strconv.Itoa(id), City: "Gwenborough"},
		}
	}
	return users
}

func makeAlbums(n int) []model.Album {
	albums := make([]model.Album, n)
	for i := range albums {
		id := i + 1
		albums[i] = model.Album{ID: id, UserID: 1, Title: "album title " + strconv.Itoa(id)}
	}
	return albums
}

func samplePhotos() []model.Photo {
	return []model.Photo{
		{ID: 1, AlbumID: 1, Title: "accusamus beatae ad facilis cum similique qui sunt", ThumbnailURL: "https://via.placeholder.com/150/92c952"},
		{ID: 2, AlbumID: 1, Title: "reprehenderit est deserunt velit ipsam", ThumbnailURL: "https://via.placeholder.com/150/771796"},
		{ID: 3, AlbumID: 1, Title: "officia porro iure quia iusto qui ipsa ut modi", ThumbnailURL: "https://via.placeholder.com/150/24f355"},
		{ID: 51, AlbumID: 2, Title: "non sunt voluptatem placeat consequuntur rem incidunt", ThumbnailURL: "https://via.placeholder.com/150/8e973b"},
		{ID: 52, AlbumID: 2, Title: "eveniet pariatur quia nobis reiciendis laboriosam ea", ThumbnailURL: "https://via.placeholder.com/150/121fa4"},
	}
}

