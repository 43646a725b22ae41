package program

import (
	"fmt"
	"strings"

	"github.com/atlas-tuning/arduino/pkg/models"
)

// tableDependencies returns the distinct table names t reads, in the order
// they are first referenced.
func tableDependencies(t *models.TableConfig, tables map[string]bool) []string {
	var deps []string

	seen := make(map[string]bool)
	add := func(name string) {
		if tables[name] && !seen[name] {
			seen[name] = true
			deps = append(deps, name)
		}
	}

	for _, d := range t.Dimensions {
		add(d.Source)
	}

	if t.Feedback != nil {
		add(t.Feedback.Real)
		add(t.Feedback.Target)
	}

	return deps
}

// evaluationOrder sorts tables so every table comes after the tables it
// reads. Ties keep configuration order.
func evaluationOrder(tables []models.TableConfig) ([]int, error) {
	index := make(map[string]int, len(tables))
	names := make(map[string]bool, len(tables))

	for i, t := range tables {
		index[t.Name] = i
		names[t.Name] = true
	}

	const (
		unvisited = iota
		visiting
		done
	)

	marks := make([]int, len(tables))
	order := make([]int, 0, len(tables))

	var path []string

	var visit func(i int) error

	visit = func(i int) error {
		switch marks[i] {
		case done:
			return nil
		case visiting:
			start := 0
			for j, name := range path {
				if name == tables[i].Name {
					start = j
				}
			}

			loop := append(append([]string(nil), path[start:]...), tables[i].Name)

			return fmt.Errorf("%w: %s", ErrCycle, strings.Join(loop, " -> "))
		}

		marks[i] = visiting
		path = append(path, tables[i].Name)

		for _, dep := range tableDependencies(&tables[i], names) {
			if err := visit(index[dep]); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		marks[i] = done
		order = append(order, i)

		return nil
	}

	for i := range tables {
		if err := visit(i); err != nil {
			return nil, err
		}
	}

	return order, nil
}
