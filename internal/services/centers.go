package services

import (
	"strings"

	"github.com/kentra/backoffice/internal/config"
)

type Center struct {
	Code  string
	Label string
}

// Centers is the ordered list of physical locations. The first entry is the
// fallback for unknown or empty input.
type Centers struct {
	list    []Center
	aliases map[string]string
}

func NewCenters(cfg []config.CenterConfig) Centers {
	c := Centers{aliases: map[string]string{}}
	for _, cc := range cfg {
		c.list = append(c.list, Center{Code: cc.Code, Label: cc.Label})
		c.aliases[cc.Code] = cc.Code
		for _, a := range cc.Aliases {
			c.aliases[a] = cc.Code
		}
	}
	return c
}

func (c Centers) List() []Center { return c.list }

func (c Centers) Default() string {
	if len(c.list) == 0 {
		return ""
	}
	return c.list[0].Code
}

// Normalize maps a code or legacy alias to its canonical code.
func (c Centers) Normalize(s string) string {
	if code, ok := c.aliases[strings.TrimSpace(s)]; ok {
		return code
	}
	return c.Default()
}

func (c Centers) Label(code string) string {
	for _, ct := range c.list {
		if ct.Code == code {
			return ct.Label
		}
	}
	return code
}
