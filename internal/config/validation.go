package config

import "fmt"

func validate(c *Config) error {
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be > 0")
	}
	if c.NavTimeout <= 0 || c.WaitTimeout <= 0 {
		return fmt.Errorf("navigation and wait timeouts must be > 0")
	}
	if c.MaxPagesPerEntry <= 0 {
		return fmt.Errorf("max pages per entry must be > 0")
	}
	if c.MaxItemsPerPage <= 0 {
		return fmt.Errorf("max items per page must be > 0")
	}
	if c.DelayMin < 0 || c.DelayMax < c.DelayMin {
		return fmt.Errorf("delay window must satisfy 0 <= min <= max")
	}
	if c.EntryMode != "listing" && c.EntryMode != "categories" {
		return fmt.Errorf("entry mode must be %q or %q", "listing", "categories")
	}
	if c.FlushEvery < 0 {
		return fmt.Errorf("flush-every must be >= 0")
	}
	return nil
}
