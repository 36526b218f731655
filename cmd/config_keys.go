package cmd

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"ccmonitor/cli/internal/bridge"
	"ccmonitor/cli/internal/config"
	cerrors "ccmonitor/cli/internal/errors"

	"github.com/spf13/viper"
)

// settingKeys lists every dotted leaf key of config.Settings.
func settingKeys() []string {
	var keys []string
	var walk func(prefix string, t reflect.Type)
	walk = func(prefix string, t reflect.Type) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := f.Tag.Get("mapstructure")
			if name == "" || name == "-" {
				continue
			}
			if prefix != "" {
				name = prefix + "." + name
			}
			if f.Type.Kind() == reflect.Struct {
				walk(name, f.Type)
				continue
			}
			keys = append(keys, name)
		}
	}
	walk("", reflect.TypeOf(config.Settings{}))
	sort.Strings(keys)
	return keys
}

func isSettingKey(key string) bool {
	for _, k := range settingKeys() {
		if k == key {
			return true
		}
	}
	return false
}

// applySetting returns s with key set to value. Values are coerced to the
// field type; lists are comma separated.
func applySetting(s config.Settings, key, value string) (config.Settings, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if !isSettingKey(key) {
		return s, cerrors.New(cerrors.KindConfig, fmt.Sprintf("unknown setting %q", key))
	}
	v := viper.New()
	if err := v.MergeConfigMap(settingsMap(s)); err != nil {
		return s, err
	}
	v.Set(key, value)

	var out config.Settings
	if err := v.Unmarshal(&out); err != nil {
		return s, cerrors.Wrap(cerrors.KindConfig, fmt.Sprintf("invalid value for %s", key), err)
	}
	if err := validateSettings(out); err != nil {
		return s, err
	}
	return out, nil
}

// validateSettings rejects settings that would fail every call.
func validateSettings(s config.Settings) error {
	if err := config.DefaultConnection().WithSettings(s.Connection).Validate(); err != nil {
		return err
	}
	switch transportKind(s.Transport) {
	case bridge.KindHTTP:
	case bridge.KindGRPC:
		if s.Transport.GRPCAddress == "" {
			return cerrors.New(cerrors.KindConfig, "transport.grpc_address is required for the grpc transport")
		}
	default:
		return cerrors.New(cerrors.KindConfig, "transport.kind must be http or grpc")
	}
	return nil
}

func settingsMap(s config.Settings) map[string]any {
	var m map[string]any
	b, _ := json.Marshal(s)
	_ = json.Unmarshal(b, &m)
	return m
}

// flattenSettings renders s as sorted key/value rows.
func flattenSettings(s config.Settings) [][]string {
	v := viper.New()
	_ = v.MergeConfigMap(settingsMap(s))
	var rows [][]string
	for _, k := range settingKeys() {
		val := v.Get(k)
		switch t := val.(type) {
		case nil:
			val = ""
		case []any:
			parts := make([]string, len(t))
			for i := range t {
				parts[i] = fmt.Sprint(t[i])
			}
			val = strings.Join(parts, ",")
		}
		rows = append(rows, []string{k, fmt.Sprint(val)})
	}
	return rows
}
