package executor

import (
	"fmt"

	"github.com/kbforge/kbforge/internal/domain"
)

func errUnknownTaskType(t domain.TaskType) error {
	return fmt.Errorf("executor: no handler registered for task type %s", t)
}
