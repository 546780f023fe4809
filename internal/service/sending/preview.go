package sending

import "github.com/ignite/blast-sender/internal/domain"

// Preview renders the template for at most limit recipients without
// sending anything.
func Preview(template string, recipients []domain.Recipient, limit int) []domain.Preview {
	n := len(recipients)
	if limit >= 0 && n > limit {
		n = limit
	}
	previews := make([]domain.Preview, 0, n)
	for _, r := range recipients[:n] {
		previews = append(previews, domain.Preview{
			Email: r.Email,
			Name:  r.Name,
			HTML:  Render(template, r.Name),
		})
	}
	return previews
}
