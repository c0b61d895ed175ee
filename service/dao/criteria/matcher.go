package criteria

import (
	"github.com/opstwin/autonomy/service/dao"
)

// Matches reports whether a field value satisfies the List parameters. An
// empty parameter set matches everything; a parameter with a different name
// is ignored rather than rejected.
func Matches(name, value string, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil || parameter.Name != name {
			continue
		}
		switch actual := parameter.Value.(type) {
		case string:
			if value != actual {
				return false
			}
		case []string:
			matched := false
			for _, candidate := range actual {
				if value == candidate {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
	}
	return true
}
