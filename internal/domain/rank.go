package domain

// RankShape 区分排行榜条目的两种页面形态。
type RankShape string

const (
	// ShapeIllustrated 是带缩略图与简介的条目（li.ranklist_item）。
	ShapeIllustrated RankShape = "illustrated"
	// ShapePlain 是只有一行链接文本的条目。
	ShapePlain RankShape = "plain"
)

// RankItem 是排行榜中的一项。
//
// Info/Thumbnail 只对 ShapeIllustrated 有意义；ID 为 0 表示链接中没有可识别的 ID。
// Rank 是该条目在所属榜单中的位置（从 1 开始），与形态无关。
type RankItem struct {
	Shape     RankShape `json:"shape"`
	Rank      int       `json:"rank"`
	Title     string    `json:"title"`
	ID        int       `json:"id"`
	Heat      int       `json:"heat"`
	Info      string    `json:"info,omitempty"`
	Thumbnail string    `json:"thumbnail,omitempty"`
}

// RankSection 是一个具名榜单。
type RankSection struct {
	Name  string     `json:"name"`
	Items []RankItem `json:"items"`
}
