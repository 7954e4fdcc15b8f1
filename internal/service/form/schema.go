package form

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"

	"github.com/ashwinyue/ai-toolbox/internal/model"
)

var (
	fieldSchemaOnce sync.Once
	fieldSchema     *gojsonschema.Schema
	fieldSchemaErr  error
)

// loadFieldSchema 由 model.Field 反射出 JSON Schema
func loadFieldSchema() (*gojsonschema.Schema, error) {
	fieldSchemaOnce.Do(func() {
		r := &jsonschema.Reflector{
			Anonymous:      true,
			ExpandedStruct: true,
			DoNotReference: true,
		}
		s := r.Reflect(&model.Field{})
		s.Version = ""

		raw, err := json.Marshal(s)
		if err != nil {
			fieldSchemaErr = fmt.Errorf("failed to encode field schema: %w", err)
			return
		}
		fieldSchema, fieldSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	})
	return fieldSchema, fieldSchemaErr
}

// ValidateSchema 校验表单定义
// 返回以 "form_schema_json[i].<prop>" 为 key 的问题列表，为空表示合法
func ValidateSchema(fields []model.Field) (map[string]string, error) {
	schema, err := loadFieldSchema()
	if err != nil {
		return nil, err
	}

	problems := map[string]string{}
	seen := make(map[string]int, len(fields))

	for i, f := range fields {
		prefix := fmt.Sprintf("form_schema_json[%d]", i)

		result, err := schema.Validate(gojsonschema.NewGoLoader(f))
		if err != nil {
			return nil, fmt.Errorf("failed to validate field %d: %w", i, err)
		}
		for _, re := range result.Errors() {
			key := prefix
			if p := re.Field(); p != "" && p != "(root)" {
				key = prefix + "." + p
			}
			if _, ok := problems[key]; !ok {
				problems[key] = re.Description()
			}
		}

		if f.Name != "" {
			if j, dup := seen[f.Name]; dup {
				problems[prefix+".name"] = fmt.Sprintf("duplicate field name %q (also at index %d)", f.Name, j)
			} else {
				seen[f.Name] = i
			}
		}
		if f.Kind == model.FieldKindSelect && len(f.Options) == 0 {
			problems[prefix+".options"] = "select field requires at least one option"
		}
		if f.Kind != model.FieldKindSelect && len(f.Options) > 0 {
			problems[prefix+".options"] = "options are only allowed on select fields"
		}
	}

	return problems, nil
}
