package utils

func AnyToString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

func AnyToBool(v any) bool {
	b, ok := v.(bool)
	if !ok {
		return false
	}
	return b
}
