package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Benjamindev1111/pilot-course-system/internal/model"
)

const (
	tagTimeSlot     = "timeslot"
	tagActivityType = "activitytype"
)

// RegisterValidators 向 gin 的校验器注册自定义规则，路由初始化前调用一次
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation(tagTimeSlot, func(fl validator.FieldLevel) bool {
		_, _, err := model.ParseTimeSlot(fl.Field().String())
		return err == nil
	}); err != nil {
		return err
	}
	return v.RegisterValidation(tagActivityType, func(fl validator.FieldLevel) bool {
		return model.ActivityType(fl.Field().String()).Valid()
	})
}
