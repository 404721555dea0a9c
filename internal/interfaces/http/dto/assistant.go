package dto

import "ai-chat-api/internal/domain/entity"

// ChatRequest 单轮对话请求
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse 单轮对话响应
type ChatResponse struct {
	Response string `json:"response"`
}

// BookResponse 推荐书籍
type BookResponse struct {
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Publisher     string   `json:"publisher"`
	YearPublished int      `json:"yearPublished"`
	Topics        []string `json:"topics"`
}

// BookListResponse 推荐书籍列表
type BookListResponse struct {
	Books []BookResponse `json:"books"`
}

// ToBookListResponse 转换书单，books 与 topics 不输出 null
func ToBookListResponse(list *entity.BookList) *BookListResponse {
	resp := &BookListResponse{Books: []BookResponse{}}
	if list == nil {
		return resp
	}
	for _, b := range list.Books {
		topics := b.Topics
		if topics == nil {
			topics = []string{}
		}
		resp.Books = append(resp.Books, BookResponse{
			Title:         b.Title,
			Author:        b.Author,
			Publisher:     b.Publisher,
			YearPublished: b.YearPublished,
			Topics:        topics,
		})
	}
	return resp
}
