package entity

// Book 推荐书籍
type Book struct {
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Publisher     string   `json:"publisher"`
	YearPublished int      `json:"yearPublished"`
	Topics        []string `json:"topics"`
}

// BookList 书籍列表；结构化输出要求顶层为对象，因此包一层
type BookList struct {
	Books []Book `json:"books"`
}
