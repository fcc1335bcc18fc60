package validator

import (
	"reflect"
	"strings"
)

// jsonName reports fields by their JSON key so messages match what the
// backend and the config file call them
func jsonName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return field.Name
	}
	return name
}
