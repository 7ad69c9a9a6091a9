package gitsource

import (
	"fmt"
	"strings"

	"github.com/klauern/skillkit/internal/model"
)

// Prompter asks the user to pick from options, all pre-selected, and
// returns the chosen indexes.
type Prompter func(title string, options []string) ([]int, error)

// SelectSkills filters candidates by explicit names (case-insensitive exact
// match), else asks prompt, else takes everything.
func SelectSkills(cands []Candidate, names []string, prompt Prompter) ([]Candidate, error) {
	if len(names) > 0 {
		var out []Candidate
		var unknown []string
		for _, n := range names {
			found := false
			for _, c := range cands {
				if strings.EqualFold(c.Name, n) {
					out = append(out, c)
					found = true
					break
				}
			}
			if !found {
				unknown = append(unknown, n)
			}
		}
		if len(unknown) > 0 {
			return nil, fmt.Errorf("skill(s) not found in repository: %s (available: %s)",
				strings.Join(unknown, ", "), strings.Join(candidateNames(cands), ", "))
		}
		return out, nil
	}

	if prompt == nil || len(cands) <= 1 {
		return cands, nil
	}

	options := make([]string, len(cands))
	for i, c := range cands {
		options[i] = c.Name
		if c.Description != "" {
			options[i] += " - " + c.Description
		}
	}
	idx, err := prompt("Select skills to install", options)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < len(cands) {
			out = append(out, cands[i])
		}
	}
	return out, nil
}

// SelectAgents resolves explicit keys against the table, else asks prompt,
// else takes every agent.
func SelectAgents(table model.AgentTable, keys []model.AgentKey, prompt Prompter) ([]model.AgentTarget, error) {
	if len(keys) > 0 {
		return table.Lookup(keys)
	}

	all := table.All()
	if prompt == nil {
		return all, nil
	}

	options := make([]string, len(all))
	for i, a := range all {
		options[i] = fmt.Sprintf("%s (%s)", a.DisplayName, a.Key)
	}
	idx, err := prompt("Select target agents", options)
	if err != nil {
		return nil, err
	}
	out := make([]model.AgentTarget, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < len(all) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func candidateNames(cands []Candidate) []string {
	names := make([]string, len(cands))
	for i, c := range cands {
		names[i] = c.Name
	}
	return names
}
