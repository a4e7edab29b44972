package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-records-api/internal/middleware"
	"github.com/noah-isme/student-records-api/internal/models"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
	"github.com/noah-isme/student-records-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// ensureStudentAccess rejects student callers acting on another student's records.
// Requests without claims pass; route guards decide whether claims are mandatory.
func ensureStudentAccess(c *gin.Context, studentID string) error {
	claims := claimsFromContext(c)
	if claims == nil || claims.Role != models.RoleStudent {
		return nil
	}
	if claims.StudentID == "" || claims.StudentID != studentID {
		return appErrors.Clone(appErrors.ErrForbidden, "students may only access their own records")
	}
	return nil
}

func pageParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, size
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

func respondOK(c *gin.Context, data interface{}, pagination *models.Pagination) {
	response.JSON(c, http.StatusOK, data, pagination, middleware.ExtractMeta(c))
}
