package resolve

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gobeam/stringy"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// typeInfo relates the names a segment may use to the members of a struct.
type typeInfo struct {
	fields  map[string][]int
	methods map[string]string
}

var (
	cacheMutex sync.RWMutex
	cache      = make(map[reflect.Type]*typeInfo)
)

func infoOf(t reflect.Type) *typeInfo {
	cacheMutex.RLock()
	info, found := cache[t]
	cacheMutex.RUnlock()
	if found {
		return info
	}

	info = buildInfo(t)

	cacheMutex.Lock()
	cache[t] = info
	cacheMutex.Unlock()
	return info
}

func buildInfo(t reflect.Type) *typeInfo {
	info := &typeInfo{
		fields:  make(map[string][]int),
		methods: make(map[string]string),
	}

	// Exact names take precedence over aliases, so they are added last.
	var exact []reflect.StructField
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || !reachable(t, f.Index) {
			continue
		}
		exact = append(exact, f)
		for _, alias := range fieldAliases(f) {
			if _, taken := info.fields[alias]; !taken {
				info.fields[alias] = f.Index
			}
		}
	}
	for _, f := range exact {
		info.fields[f.Name] = f.Index
	}

	pt := reflect.PointerTo(t)
	for i := 0; i < pt.NumMethod(); i++ {
		m := pt.Method(i)
		if !isGetter(m.Type, 1) {
			continue
		}
		for _, alias := range []string{m.Name, snakeCase(m.Name)} {
			if _, isField := info.fields[alias]; !isField {
				info.methods[alias] = m.Name
			}
		}
	}
	return info
}

// reachable reports whether every struct embedding a promoted field is
// exported, so that the field value may be read through reflection.
func reachable(t reflect.Type, index []int) bool {
	for i := 1; i < len(index); i++ {
		if !t.FieldByIndex(index[:i]).IsExported() {
			return false
		}
	}
	return true
}

// fieldAliases lists the tag and snake_case names of a field.
func fieldAliases(f reflect.StructField) []string {
	var aliases []string
	for _, key := range []string{"db", "json", "bson"} {
		if name := tagName(f.Tag.Get(key)); name != "" && name != "-" {
			aliases = append(aliases, name)
		}
	}
	for _, setting := range strings.Split(f.Tag.Get("gorm"), ";") {
		if k, v, ok := strings.Cut(setting, ":"); ok && strings.EqualFold(strings.TrimSpace(k), "column") {
			aliases = append(aliases, strings.TrimSpace(v))
		}
	}
	return append(aliases, snakeCase(f.Name), strings.ToLower(f.Name))
}

func tagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	return name
}

func snakeCase(name string) string {
	return stringy.New(name).SnakeCase("?", "").ToLower()
}

// isGetter accepts methods of the form func() T and func() (T, error).
// Methods obtained from a type take their receiver as the only input,
// bound method values take none.
func isGetter(mt reflect.Type, inputs int) bool {
	if mt.NumIn() != inputs {
		return false
	}
	switch mt.NumOut() {
	case 1:
		return true
	case 2:
		return mt.Out(1) == errorType
	}
	return false
}
