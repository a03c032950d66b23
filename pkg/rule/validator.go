// Package rule 封装 go-playground/validator，与 gin 的 binding 共用同一实例，标签名为 rule.
package rule

import (
	"errors"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	inst *validator.Validate
	once sync.Once
)

// 业务别名.
const (
	// AliasDrivePath 相对根目录的路径.
	AliasDrivePath = "drivepath"
	// AliasSortOrder 排序方向.
	AliasSortOrder = "sortorder"
)

func initValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok && v != nil {
		inst = v
	} else {
		inst = validator.New()
	}

	inst.SetTagName("rule")
	inst.RegisterAlias(AliasDrivePath, "max=1024")
	inst.RegisterAlias(AliasSortOrder, "oneof=asc desc")
}

func lazyInit() {
	once.Do(initValidator)
}

// Engine 返回全局 *validator.Validate.
func Engine() *validator.Validate {
	lazyInit()

	return inst
}

// RegisterValidation 注册自定义校验函数.
func RegisterValidation(tag string, fn validator.Func, opts ...bool) error {
	lazyInit()

	return inst.RegisterValidation(tag, fn, opts...)
}

// RegisterAlias 注册别名规则.
func RegisterAlias(alias, rules string) {
	lazyInit()

	inst.RegisterAlias(alias, rules)
}

// ValidateStruct 校验结构体，错误可交给 Errors 展开.
func ValidateStruct(s any) error {
	lazyInit()

	return inst.Struct(s)
}

// ValidateVar 按规则校验单个值，例如 ValidateVar("a.txt", "required,max=255").
func ValidateVar(field any, tag string) error {
	lazyInit()

	return inst.Var(field, tag)
}

// ValidationErrors 字段名到失败规则的映射.
type ValidationErrors map[string]string

// Errors 把 validator.ValidationErrors 展开为 字段 -> 规则[=参数]，其他错误返回 nil.
func Errors(err error) ValidationErrors {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(ValidationErrors, len(verrs))
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())

		// 别名只展示别名本身
		reason := fe.Tag()
		if reason == fe.ActualTag() && fe.Param() != "" {
			reason += "=" + fe.Param()
		}

		out[name] = reason
	}

	return out
}
