package config

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"portfolio_monitor/internal/models"
)

// Account: идентичность + ключи. Ключи наружу (наблюдателям, в API) не отдаются.
type Account struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	APIKey     string `yaml:"api_key"`
	SecretKey  string `yaml:"secret_key"`
	Passphrase string `yaml:"passphrase"`
	Simulated  bool   `yaml:"simulated"`
}

func (a Account) Identity() models.AccountIdentity {
	return models.AccountIdentity{ID: a.ID, Name: a.Name, Simulated: a.Simulated}
}

func (a Account) complete() bool {
	return a.APIKey != "" && a.SecretKey != "" && a.Passphrase != ""
}

var accountNameRe = regexp.MustCompile(`^OKX_ACCOUNT_(\d+)_NAME$`)

// accountsFromEnv ищет OKX_ACCOUNT_{N}_NAME с любыми N (дырки в нумерации допустимы),
// сортирует по N. Аккаунты без ключей пропускаются и возвращаются вторым значением.
func accountsFromEnv(environ []string) ([]Account, []string) {
	env := make(map[string]string, len(environ))
	var indices []int
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[k] = v
		if m := accountNameRe.FindStringSubmatch(k); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				indices = append(indices, n)
			}
		}
	}
	sort.Ints(indices)

	var (
		out     []Account
		skipped []string
	)
	for _, n := range indices {
		id := strconv.Itoa(n)
		prefix := "OKX_ACCOUNT_" + id + "_"
		a := Account{
			ID:         id,
			Name:       env[prefix+"NAME"],
			APIKey:     env[prefix+"API_KEY"],
			SecretKey:  env[prefix+"SECRET_KEY"],
			Passphrase: env[prefix+"PASSPHRASE"],
			Simulated:  strings.EqualFold(env[prefix+"SIMULATED"], "true"),
		}
		if !a.complete() {
			skipped = append(skipped, id)
			continue
		}
		out = append(out, a)
	}
	return out, skipped
}

// mergeAccounts: env перекрывает yaml по ID, порядок - сначала yaml, потом новые из env.
func mergeAccounts(fromFile, fromEnv []Account) []Account {
	out := make([]Account, 0, len(fromFile)+len(fromEnv))
	idx := make(map[string]int, len(fromFile))
	for _, a := range fromFile {
		if !a.complete() {
			continue
		}
		idx[a.ID] = len(out)
		out = append(out, a)
	}
	for _, a := range fromEnv {
		if i, ok := idx[a.ID]; ok {
			out[i] = a
			continue
		}
		idx[a.ID] = len(out)
		out = append(out, a)
	}
	return out
}

// Identities: неизменяемый список аккаунтов в порядке конфига.
func (c *Config) Identities() []models.AccountIdentity {
	out := make([]models.AccountIdentity, 0, len(c.Accounts))
	for _, a := range c.Accounts {
		out = append(out, a.Identity())
	}
	return out
}

func (c *Config) Account(id string) (Account, bool) {
	for _, a := range c.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

func (c *Config) AccountIDs() []string {
	out := make([]string, 0, len(c.Accounts))
	for _, a := range c.Accounts {
		out = append(out, a.ID)
	}
	return out
}
