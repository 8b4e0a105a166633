package confirm

import (
	"reward-core/pkg/errno"
)

// Step is a state of the confirmation flow.
type Step int

const (
	StepConfirm Step = iota
	StepFinal
	StepExecuting
	StepCompleted
	StepClosed
)

func (s Step) String() string {
	switch s {
	case StepConfirm:
		return "confirm"
	case StepFinal:
		return "final"
	case StepExecuting:
		return "executing"
	case StepCompleted:
		return "completed"
	case StepClosed:
		return "closed"
	}
	return "unknown"
}

// Action drives Transition.
type Action int

const (
	ActionProceed Action = iota // confirm -> final, requires the phrase
	ActionBack                  // final -> confirm
	ActionCancel                // confirm|final -> closed, no backend call
	ActionExecute               // final -> executing
	ActionSucceed               // executing -> completed
	ActionFail                  // executing -> executing
	ActionClose                 // any -> closed
)

func (a Action) String() string {
	switch a {
	case ActionProceed:
		return "proceed"
	case ActionBack:
		return "back"
	case ActionCancel:
		return "cancel"
	case ActionExecute:
		return "execute"
	case ActionSucceed:
		return "succeed"
	case ActionFail:
		return "fail"
	case ActionClose:
		return "close"
	}
	return "unknown"
}

// Transition returns the step reached by applying a to from.
// It has no side effects; every pair not listed is rejected with ErrIllegalTransition.
func Transition(from Step, a Action) (Step, error) {
	switch {
	case from == StepConfirm && a == ActionProceed:
		return StepFinal, nil
	case from == StepFinal && a == ActionBack:
		return StepConfirm, nil
	case (from == StepConfirm || from == StepFinal) && a == ActionCancel:
		return StepClosed, nil
	case from == StepFinal && a == ActionExecute:
		return StepExecuting, nil
	case from == StepExecuting && a == ActionSucceed:
		return StepCompleted, nil
	// 失败后停留在 executing，只能关闭重来
	case from == StepExecuting && a == ActionFail:
		return StepExecuting, nil
	case from != StepClosed && a == ActionClose:
		return StepClosed, nil
	}
	return from, errno.ErrIllegalTransition.WithMessage("Cannot " + a.String() + " from step " + from.String())
}
