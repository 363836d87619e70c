package entity

import "github.com/uptrace/bun"

type Topic struct {
	bun.BaseModel `bun:"table:topics,alias:t"`

	ID         int64  `bun:"id,pk,autoincrement" json:"id"`
	SystemName string `bun:"system_name,notnull" json:"system_name"`
	Title      string `bun:"title" json:"title"`
	Body       string `bun:"body" json:"body"`
}

func (t *Topic) GetID() int64       { return t.ID }
func (t *Topic) EntityName() string { return "Topic" }

type Menu struct {
	bun.BaseModel `bun:"table:menus,alias:mnu"`

	ID         int64  `bun:"id,pk,autoincrement" json:"id"`
	SystemName string `bun:"system_name,notnull" json:"system_name"`
}

func (m *Menu) GetID() int64       { return m.ID }
func (m *Menu) EntityName() string { return "Menu" }

type MenuItem struct {
	bun.BaseModel `bun:"table:menu_items,alias:mi"`

	ID     int64  `bun:"id,pk,autoincrement" json:"id"`
	MenuID int64  `bun:"menu_id,notnull" json:"menu_id"`
	Title  string `bun:"title" json:"title"`
	URL    string `bun:"url" json:"url"`
}

func (mi *MenuItem) GetID() int64       { return mi.ID }
func (mi *MenuItem) EntityName() string { return "MenuItem" }

type BlogPost struct {
	bun.BaseModel `bun:"table:blog_posts,alias:bp"`

	ID    int64  `bun:"id,pk,autoincrement" json:"id"`
	Title string `bun:"title,notnull" json:"title"`
	Body  string `bun:"body" json:"body"`
}

func (b *BlogPost) GetID() int64       { return b.ID }
func (b *BlogPost) EntityName() string { return "BlogPost" }

type BlogComment struct {
	bun.BaseModel `bun:"table:blog_comments,alias:bc"`

	ID         int64  `bun:"id,pk,autoincrement" json:"id"`
	BlogPostID int64  `bun:"blog_post_id,notnull" json:"blog_post_id"`
	Text       string `bun:"text" json:"text"`
}

func (c *BlogComment) GetID() int64       { return c.ID }
func (c *BlogComment) EntityName() string { return "BlogComment" }

type NewsItem struct {
	bun.BaseModel `bun:"table:news_items,alias:ni"`

	ID    int64  `bun:"id,pk,autoincrement" json:"id"`
	Title string `bun:"title,notnull" json:"title"`
	Short string `bun:"short" json:"short"`
}

func (n *NewsItem) GetID() int64       { return n.ID }
func (n *NewsItem) EntityName() string { return "NewsItem" }

type NewsComment struct {
	bun.BaseModel `bun:"table:news_comments,alias:nc"`

	ID         int64  `bun:"id,pk,autoincrement" json:"id"`
	NewsItemID int64  `bun:"news_item_id,notnull" json:"news_item_id"`
	Text       string `bun:"text" json:"text"`
}

func (c *NewsComment) GetID() int64       { return c.ID }
func (c *NewsComment) EntityName() string { return "NewsComment" }
