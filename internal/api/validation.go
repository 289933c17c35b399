package api

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"portify/internal/catalog"
)

var registerOnce sync.Once

// registerValidators 向 gin 的校验引擎注册自定义规则，必须在任何绑定之前完成。
// 注册失败说明规则本身有误，启动时直接 panic。
func registerValidators() {
	registerOnce.Do(func() {
		if err := addValidators(binding.Validator.Engine()); err != nil {
			panic(err)
		}
	})
}

func addValidators(engine any) error {
	v, ok := engine.(*validator.Validate)
	if !ok {
		return fmt.Errorf("binding engine is %T, custom rules need *validator.Validate", engine)
	}
	if err := v.RegisterValidation("template_category", func(fl validator.FieldLevel) bool {
		return catalog.IsCategory(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("register template_category: %w", err)
	}
	return nil
}
