package simulate

import (
	"fmt"
	"os"
	"sort"
)

// Built-in player models.
var players = map[string]string{
	"steady": `
		// Quick and accurate.
		function react(spawn) {
			return { hit: true, rt: rand(260, 380) + spawn.distance * 60 };
		}
	`,
	"struggling": `
		// Slow, and misses often on small or distant targets.
		function react(spawn) {
			var p = 0.62 - spawn.distance * 0.2 - (1 - spawn.sizeMul) * 0.5;
			if (rand() > p) {
				return { hit: false };
			}
			return { hit: true, rt: rand(480, 720) };
		}
	`,
	"improving": `
		// Starts slow and sharpens as the session goes on.
		function react(spawn) {
			var skill = Math.min(1, spawn.progress * 1.4);
			if (rand() > 0.55 + 0.4 * skill) {
				return { hit: false };
			}
			return { hit: true, rt: 650 - 300 * skill + rand(-40, 40) };
		}
	`,
}

// Players lists the built-in player model names.
func Players() []string {
	names := make([]string, 0, len(players))
	for name := range players {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadPlayer returns a built-in model by name, or reads a script file.
func LoadPlayer(nameOrPath string) (string, error) {
	if src, ok := players[nameOrPath]; ok {
		return src, nil
	}
	raw, err := os.ReadFile(nameOrPath)
	if err != nil {
		return "", fmt.Errorf("simulate: unknown player %q: %w", nameOrPath, err)
	}
	return string(raw), nil
}
