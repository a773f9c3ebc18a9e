// Package paginate はページ番号方式のページネーションを提供する。
package paginate

import "strconv"

// DefaultPageSize は設定がない場合の1ページあたりの件数。
const DefaultPageSize = 10

// Page は1ページ分の位置情報を表す。Numberは1始まり。
type Page struct {
	Number   int
	NumPages int
	Size     int
	Total    int
}

// New は総件数とページサイズから指定ページの位置を計算する。
// 数値として解釈できないページ番号は1ページ目として扱い、
// 最終ページを超える番号は最終ページに丸める。件数が0でも1ページ存在する。
func New(rawPage string, total, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	if total < 0 {
		total = 0
	}

	numPages := (total + size - 1) / size
	if numPages < 1 {
		numPages = 1
	}

	number, err := strconv.Atoi(rawPage)
	if err != nil || number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}

	return Page{Number: number, NumPages: numPages, Size: size, Total: total}
}

// Offset はこのページの先頭要素のオフセットを返す。
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// Limit はこのページで取得する最大件数を返す。
func (p Page) Limit() int {
	return p.Size
}

// HasPrev は前のページが存在するかを返す。
func (p Page) HasPrev() bool {
	return p.Number > 1
}

// HasNext は次のページが存在するかを返す。
func (p Page) HasNext() bool {
	return p.Number < p.NumPages
}

// PrevNumber は前のページ番号を返す。
func (p Page) PrevNumber() int {
	return p.Number - 1
}

// NextNumber は次のページ番号を返す。
func (p Page) NextNumber() int {
	return p.Number + 1
}
