package services

import (
	"fmt"
	"sort"

	"github.com/vsinha/craftsman/pkg/domain/entities"
)

// RecipeValidator checks the structure of a recipe catalog
type RecipeValidator struct{}

// NewRecipeValidator creates a new recipe validator
func NewRecipeValidator() *RecipeValidator {
	return &RecipeValidator{}
}

// ValidationResult contains the results of recipe validation
type ValidationResult struct {
	HasCycles       bool
	CyclePaths      [][]entities.SKU
	DuplicateOutput []entities.SKU
	Errors          []string
	Warnings        []string
}

// ValidateRecipes detects sub-recipe cycles and duplicate active outputs
func (v *RecipeValidator) ValidateRecipes(recipes []*entities.Recipe) *ValidationResult {
	result := &ValidationResult{
		CyclePaths: make([][]entities.SKU, 0),
		Errors:     make([]string, 0),
		Warnings:   make([]string, 0),
	}

	producers := make(map[entities.SKU]*entities.Recipe)
	for _, recipe := range recipes {
		if !recipe.IsActive {
			continue
		}
		if _, exists := producers[recipe.Output.SKU]; exists {
			result.DuplicateOutput = append(result.DuplicateOutput, recipe.Output.SKU)
			result.Errors = append(result.Errors, fmt.Sprintf("more than one active recipe produces %s", recipe.Output.SKU))
			continue
		}
		producers[recipe.Output.SKU] = recipe
		if len(recipe.Steps) == 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("recipe %s declares no steps", recipe.Code))
		}
	}

	cycles := v.detectCycles(v.buildAdjacencyMap(producers))
	result.HasCycles = len(cycles) > 0
	result.CyclePaths = cycles
	for _, cycle := range cycles {
		result.Warnings = append(result.Warnings, fmt.Sprintf("recipe cycle detected: %v", cycle))
	}

	return result
}

// buildAdjacencyMap links each output to the sub-recipe outputs it consumes
func (v *RecipeValidator) buildAdjacencyMap(producers map[entities.SKU]*entities.Recipe) map[entities.SKU][]entities.SKU {
	adjacencyMap := make(map[entities.SKU][]entities.SKU, len(producers))

	for output, recipe := range producers {
		seen := make(map[entities.SKU]bool)
		for _, line := range recipe.ActiveItems() {
			child := line.Item.SKU
			if _, isRecipe := producers[child]; !isRecipe || seen[child] {
				continue
			}
			seen[child] = true
			adjacencyMap[output] = append(adjacencyMap[output], child)
		}
	}

	return adjacencyMap
}

// detectCycles uses DFS to find cycles, visiting outputs in sorted order
func (v *RecipeValidator) detectCycles(adjacencyMap map[entities.SKU][]entities.SKU) [][]entities.SKU {
	visited := make(map[entities.SKU]bool)
	recursionStack := make(map[entities.SKU]bool)
	cycles := make([][]entities.SKU, 0)

	roots := make([]entities.SKU, 0, len(adjacencyMap))
	for parent := range adjacencyMap {
		roots = append(roots, parent)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	for _, parent := range roots {
		if !visited[parent] {
			v.dfsDetectCycle(parent, adjacencyMap, visited, recursionStack, nil, &cycles)
		}
	}

	return cycles
}

func (v *RecipeValidator) dfsDetectCycle(
	current entities.SKU,
	adjacencyMap map[entities.SKU][]entities.SKU,
	visited map[entities.SKU]bool,
	recursionStack map[entities.SKU]bool,
	path []entities.SKU,
	cycles *[][]entities.SKU,
) {
	visited[current] = true
	recursionStack[current] = true
	path = append(path, current)

	for _, child := range adjacencyMap[current] {
		if !visited[child] {
			v.dfsDetectCycle(child, adjacencyMap, visited, recursionStack, path, cycles)
			continue
		}
		if !recursionStack[child] {
			continue
		}
		for i, sku := range path {
			if sku == child {
				cycle := append([]entities.SKU(nil), path[i:]...)
				*cycles = append(*cycles, append(cycle, child))
				break
			}
		}
	}

	recursionStack[current] = false
}
