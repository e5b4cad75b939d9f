package handlers

import (
	"context"
	"net/http"
	"time"

	"datingluck-server/internal/apperr"
	"datingluck-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RegisterValidations installs the custom binding rules used by the
// request structs. Call once at startup.
func RegisterValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterValidation("gender", func(fl validator.FieldLevel) bool {
		return models.ValidGender(fl.Field().String())
	})
	v.RegisterValidation("genderpref", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return value == models.GenderAny || models.ValidGender(value)
	})
}

// respondError maps classified errors to statuses; transient causes are
// logged and hidden behind a generic message.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
	}
	c.JSON(status, gin.H{"error": apperr.ClientMessage(err)})
}

func requestContext(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), timeout)
}

func objectIDFromHex(c *gin.Context, hex, field string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + field})
		return primitive.NilObjectID, false
	}
	return id, true
}
