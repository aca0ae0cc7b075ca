package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_dashboard/internal/repository"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

// bindJSON decodes the body into req and writes a 400 on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.RespondError(c, utils.ValidationError(err), "Invalid request body")
		return false
	}
	return true
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		utils.Error(c, 400, "INVALID_ID", "Invalid "+name)
		return 0, false
	}
	return id, true
}

// queryID parses an optional positive integer query parameter; zero when absent.
func queryID(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id < 0 {
		utils.Error(c, 400, "INVALID_ID", "Invalid "+name)
		return 0, false
	}
	return id, true
}

// listFilter reads the shared list query parameters.
func listFilter(c *gin.Context) (repository.ListFilter, bool) {
	customerID, ok := queryID(c, "customer_id")
	if !ok {
		return repository.ListFilter{}, false
	}
	return repository.ListFilter{
		Search:     c.Query("search"),
		Status:     c.Query("status"),
		Kind:       c.Query("kind"),
		CustomerID: customerID,
		Page:       utils.ParsePage(c),
	}, true
}

func paginated(c *gin.Context, message string, data interface{}, f repository.ListFilter, total int) {
	utils.SuccessWithPagination(c, 200, message, data, f.Page.Page, f.Page.Limit, total)
}
