package testutils

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockMailService struct {
	mock.Mock
}

func (m *MockMailService) SendTemplate(ctx context.Context, templateName string, to []string, subject string, data map[string]any) error {
	args := m.Called(ctx, templateName, to, subject, data)
	return args.Error(0)
}

// LastData returns the template data of the most recent call for templateName.
func (m *MockMailService) LastData(templateName string) map[string]any {
	for i := len(m.Calls) - 1; i >= 0; i-- {
		call := m.Calls[i]
		if call.Method == "SendTemplate" && call.Arguments.String(1) == templateName {
			return call.Arguments.Get(4).(map[string]any)
		}
	}
	return nil
}
