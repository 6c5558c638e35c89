package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// Генератор запросов: на каждый *.sql из sql.0.source собирает свой sqlc.yaml
// (пакет = имя каталога, вывод рядом с файлом) и зовёт sqlc generate.

const defaultConfigName = "sqlc.yaml"

type target struct {
	queries string
	outDir  string
	pkg     string
}

func targetFor(file string) target {
	dir := filepath.Dir(file)
	return target{
		queries: file,
		outDir:  dir,
		pkg:     filepath.Base(dir),
	}
}

func renderConfig(version string, engine map[string]interface{}, t target) ([]byte, error) {
	block := make(map[string]interface{}, len(engine)+1)
	for k, v := range engine {
		if k == "source" {
			continue
		}
		block[k] = v
	}
	block["queries"] = t.queries

	goGen := map[string]interface{}{}
	if gen, ok := engine["gen"].(map[string]interface{}); ok {
		if g, ok := gen["go"].(map[string]interface{}); ok {
			for k, v := range g {
				goGen[k] = v
			}
		}
	}
	goGen["package"] = t.pkg
	goGen["out"] = t.outDir
	block["gen"] = map[string]interface{}{"go": goGen}

	out := viper.New()
	out.Set("version", version)
	out.Set("sql", []interface{}{block})

	bs, err := yaml.Marshal(out.AllSettings())
	if err != nil {
		return nil, errors.Wrap(err, "marshal config to yaml")
	}
	return bs, nil
}

func callSqlc(config string) error {
	cmd := exec.Command("sqlc", "generate", "--file", config)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "call sqlc: %s", strings.TrimSpace(string(output)))
	}
	return nil
}

func sources(patterns []string) ([]string, error) {
	files := make([]string, 0)
	for _, pattern := range patterns {
		f, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "glob %s", pattern)
		}
		files = append(files, f...)
	}
	return files, nil
}

func run(base string, dryRun bool) error {
	v := viper.New()
	v.SetConfigFile(base)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrap(err, "read base config")
	}

	files, err := sources(v.GetStringSlice("sql.0.source"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no query files matched sql.0.source")
	}

	engine := v.Sub("sql.0")
	if engine == nil {
		return errors.New("no sql.0 section in base config")
	}
	settings := engine.AllSettings()

	for _, file := range files {
		bs, err := renderConfig(v.GetString("version"), settings, targetFor(file))
		if err != nil {
			return errors.Wrap(err, file)
		}
		if dryRun {
			fmt.Printf("# %s\n%s\n", file, bs)
			continue
		}
		if err := os.WriteFile(defaultConfigName, bs, 0o644); err != nil {
			return errors.Wrap(err, "write sqlc.yaml")
		}
		if err := callSqlc(defaultConfigName); err != nil {
			_ = os.Remove(defaultConfigName)
			return err
		}
		fmt.Printf("%s file complete\n", file)
	}
	_ = os.Remove(defaultConfigName)
	return nil
}

func main() {
	base := flag.String("base", ".sqlc.base.yaml", "base sqlc config with sql.0.source globs")
	dryRun := flag.Bool("dry-run", false, "print generated configs instead of calling sqlc")
	flag.Parse()

	if err := run(*base, *dryRun); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println("done")
}
