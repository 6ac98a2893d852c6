// Package config loads, parses and validates application settings from a
// config file and MC_-prefixed environment variables. It only covers process
// configuration; the dispatch interval lives in the settings table because
// agents and the dashboard change it at runtime.
package config
