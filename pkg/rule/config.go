package rule

// RuleConfig is one row of the contest's rule table.
type RuleConfig struct {
	ID       string  `yaml:"id" json:"id"`
	Name     string  `yaml:"name" json:"name"`
	Type     string  `yaml:"type" json:"type"`
	Enabled  bool    `yaml:"enabled" json:"enabled"`
	Priority int     `yaml:"priority" json:"priority"`
	Bonus    float64 `yaml:"bonus" json:"bonus"`

	// Parameters are type-specific, e.g. platforms for platform_any or
	// letters for title_letters.
	Parameters map[string]interface{} `yaml:"parameters" json:"parameters"`
}

func param[T any](c *RuleConfig, key string, fallback T) T {
	if v, ok := c.Parameters[key].(T); ok {
		return v
	}
	return fallback
}

func listParam[T any](c *RuleConfig, key string) []T {
	switch v := c.Parameters[key].(type) {
	case []T:
		return v
	case []interface{}:
		out := make([]T, 0, len(v))
		for _, item := range v {
			if t, ok := item.(T); ok {
				out = append(out, t)
			}
		}
		return out
	}
	return nil
}

func (c *RuleConfig) Has(key string) bool {
	_, ok := c.Parameters[key]
	return ok
}

func (c *RuleConfig) GetInt(key string, fallback int) int {
	return param(c, key, fallback)
}

// GetFloat widens integer parameters, so bonus: 1 and bonus: 1.0 read the same.
func (c *RuleConfig) GetFloat(key string, fallback float64) float64 {
	if n, ok := c.Parameters[key].(int); ok {
		return float64(n)
	}
	return param(c, key, fallback)
}

func (c *RuleConfig) GetString(key string, fallback string) string {
	return param(c, key, fallback)
}

func (c *RuleConfig) GetBool(key string, fallback bool) bool {
	return param(c, key, fallback)
}

// GetStringSlice skips items that are not strings.
func (c *RuleConfig) GetStringSlice(key string) []string {
	return listParam[string](c, key)
}

// GetIntSlice skips items that are not integers.
func (c *RuleConfig) GetIntSlice(key string) []int {
	return listParam[int](c, key)
}
