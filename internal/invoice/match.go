package invoice

import (
	"strings"
	"unicode/utf8"

	"pizzeria-backoffice-api-server/internal/models"

	"github.com/agnivade/levenshtein"
)

const matchThreshold = 0.6

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// similarity trả về 1 - khoảng cách Levenshtein / độ dài lớn nhất.
// Tên chứa nhau được tính ít nhất 0.8.
func similarity(a, b string) float64 {
	a, b = normalize(a), normalize(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	score := 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
	if (strings.Contains(a, b) || strings.Contains(b, a)) && score < 0.8 {
		score = 0.8
	}
	return score
}

// bestMatch tìm sản phẩm gần nhất; nil nếu dưới ngưỡng.
func bestMatch(description string, products []models.Product) (*models.Product, float64) {
	var best *models.Product
	bestScore := 0.0
	for i := range products {
		score := similarity(description, products[i].Name)
		if score > bestScore {
			best, bestScore = &products[i], score
		}
	}
	if bestScore < matchThreshold {
		return nil, bestScore
	}
	return best, bestScore
}
