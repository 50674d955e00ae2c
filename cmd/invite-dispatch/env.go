package main

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
}

func DefaultEnv() *Environment {
	return &Environment{Stdout: os.Stdout, Stderr: os.Stderr, Getenv: os.Getenv}
}

// lookup resolves variables from the process first, then from a .env file.
type lookup struct {
	getenv func(string) string
	file   map[string]string
}

// loadLookup reads path with godotenv. A missing file is not an error.
func loadLookup(getenv func(string) string, path string) (lookup, error) {
	l := lookup{getenv: getenv, file: map[string]string{}}
	if path == "" {
		return l, nil
	}
	vals, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return l, err
	}
	l.file = vals
	return l, nil
}

func (l lookup) get(key string) string {
	if v := l.getenv(key); v != "" {
		return v
	}
	return l.file[key]
}
