package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"videoSearch/core"
)

// Searcher 统一查询入口
type Searcher interface {
	Search(ctx context.Context, req core.QueryRequest) (any, error)
}

// SearchHandlers 查询相关的HTTP处理器
type SearchHandlers struct {
	searcher Searcher
	validate *validator.Validate
}

// SearchGet GET /search?index=&type=&query=
func (h *SearchHandlers) SearchGet(c *fiber.Ctx) error {
	var req core.QueryRequest
	if err := c.QueryParser(&req); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidQuery, err)
	}
	// 查询串里未转义的 '+' 会被解码成空格，base64 本身不含空格
	if strings.EqualFold(strings.TrimSpace(string(req.Type)), string(core.QueryTypeImage)) {
		req.Query = strings.ReplaceAll(req.Query, " ", "+")
	}
	return h.search(c, req)
}

// SearchPost POST /search {"index","type","query"}，图像查询走这里
func (h *SearchHandlers) SearchPost(c *fiber.Ctx) error {
	var req core.QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", core.ErrInvalidQuery, err)
	}
	return h.search(c, req)
}

func (h *SearchHandlers) search(c *fiber.Ctx, req core.QueryRequest) error {
	req.Type = core.QueryType(strings.ToLower(strings.TrimSpace(string(req.Type))))
	if err := h.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", core.ErrInvalidQuery, describeValidation(err))
	}

	results, err := h.searcher.Search(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(results)
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, strings.ToLower(fe.Field())+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", strings.ToLower(fe.Field()), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return strings.Join(msgs, ", ")
}
