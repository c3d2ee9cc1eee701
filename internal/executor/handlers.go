// File: internal/executor/handlers.go
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/vxkeys/puppetry/api/schemas"
	"github.com/vxkeys/puppetry/internal/driver"
)

// defaultHandlers builds the closed dispatch table. Every supported action
// kind has exactly one entry; anything else is rejected before touching a
// session.
func defaultHandlers() map[schemas.ActionKind]Handler {
	return map[schemas.ActionKind]Handler{
		schemas.ActionNavigate:      handleNavigate,
		schemas.ActionClick:         handleClick,
		schemas.ActionDoubleClick:   handleDoubleClick,
		schemas.ActionRightClick:    handleRightClick,
		schemas.ActionHover:         handleHover,
		schemas.ActionDragAndDrop:   handleDragAndDrop,
		schemas.ActionType:          handleType,
		schemas.ActionPressKey:      handlePressKey,
		schemas.ActionSelectOption:  handleSelectOption,
		schemas.ActionScroll:        handleScroll,
		schemas.ActionWait:          handleWait,
		schemas.ActionExecuteScript: handleExecuteScript,
		schemas.ActionScreenshot:    handleScreenshot,
		schemas.ActionGetText:       handleGetText,
		schemas.ActionGetTitle:      handleGetTitle,
		schemas.ActionGetURL:        handleGetURL,
	}
}

var successMessages = map[schemas.ActionKind]string{
	schemas.ActionNavigate:      "navigation complete",
	schemas.ActionClick:         "element clicked",
	schemas.ActionDoubleClick:   "element double clicked",
	schemas.ActionRightClick:    "element right clicked",
	schemas.ActionHover:         "element hovered",
	schemas.ActionDragAndDrop:   "drag and drop complete",
	schemas.ActionType:          "text typed",
	schemas.ActionPressKey:      "key pressed",
	schemas.ActionSelectOption:  "option selected",
	schemas.ActionScroll:        "scrolled",
	schemas.ActionWait:          "wait complete",
	schemas.ActionExecuteScript: "script executed",
	schemas.ActionScreenshot:    "screenshot captured",
	schemas.ActionGetText:       "text extracted",
	schemas.ActionGetTitle:      "title retrieved",
	schemas.ActionGetURL:        "url retrieved",
}

func successMessage(kind schemas.ActionKind) string {
	if msg, ok := successMessages[kind]; ok {
		return msg
	}
	return "action complete"
}

// requireSelector rejects element actions that arrived without a selector.
func requireSelector(action schemas.ActionDescriptor) (schemas.Selector, error) {
	if action.Selector == nil {
		return schemas.Selector{}, fmt.Errorf("%w: %s requires a selector", schemas.ErrInvalidSelector, action.Kind)
	}
	return *action.Selector, nil
}

func handleNavigate(ctx context.Context, drv driver.Driver, action schemas.ActionDescriptor) (string, error) {
	if action.URL == "" {
		return "", fmt.Errorf("%w: navigate requires a url", schemas.ErrInvalidArgument)
	}
	return "", drv.Navigate(ctx, action.URL)
}

func handleClick(ctx context.Context, drv driver.Driver, action schemas.ActionDescriptor) (string, error) {
	sel, err := requireSelector(action)
	if err != nil {
		return "", err
	}
	return "", drv.Click(ctx, sel)
}

func handleDoubleClick(ctx context.Context, drv driver.Driver, action schemas.ActionDescriptor) (string, error) {
	sel, err := requireSelector(action)
	if err != nil {
		return "", err
	}
	return "", drv.DoubleClick(ctx, sel)
}

func handleRightClick(ctx context.Context, drv driver.Driver, action schemas.ActionDescriptor) (string, error) {
	sel, err := requireSelector(action)
	if err != nil {
		return "", err
	}
	return "", drv.RightClick(ctx, sel)
}

func handleHover(ctx context.Context, drv driver.Driver, action schemas.ActionDescriptor) (string, error) {
	sel, err := requireSelector(action)
	if err != nil {
		return "", err
	}
	return "", drv.Hover(ctx, sel)
}

func handleDragAndDrop(ctx context.Context, drv driver.Driver, action schemas.ActionDescriptor) (string, error) {
	if action.Selector == nil || action.Target == nil {
		return "", fmt.Errorf("%w: drag_and_drop requires source and target selectors", schemas.ErrInvalidSelector)
	}
	return "", drv.DragAndDrop(ctx, *action.Selector, *action.Target)
}

func handleType(ctx context.Context, drv driver.Driver, action schemas.ActionDescriptor) (string, error) {
	sel, err := requireSelector(action)
	if err != nil {
		return "", err
	}
	return "", drv.SendKeys(ctx, sel, action.Text)
}

func handlePressKey(ctx context.Context, drv driver.Driver, action schemas.ActionDescriptor) (string, error) {
	if action.Key == "" {
		return "", fmt.Errorf("%w: press_key requires a key", schemas.ErrInvalidArgument)
	}
	// A nil selector targets the focused element.
	return "", drv.PressKey(ctx, action.Selector, action.Key)
}

func handleSelectOption(ctx context.Context, drv driver.Driver, action schemas.ActionDescriptor) (string, error) {
	sel, err := requireSelector(action)
	if err != nil {
		return "", err
	}
	if action.Text == "" {
		return "", fmt.Errorf("%w: select_option requires the option text", schemas.ErrInvalidArgument)
	}
	return "", drv.SelectOption(ctx, sel, action.Text)
}

func handleScroll(ctx context.Context, drv driver.Driver, action schemas.ActionDescriptor) (string, error) {
	// A nil selector scrolls the page itself.
	return "", drv.Scroll(ctx, action.Selector)
}

func handleWait(ctx context.Context, drv driver.Driver, action schemas.ActionDescriptor) (string, error) {
	if action.DurationMillis <= 0 {
		return "", fmt.Errorf("%w: wait requires a positive duration_ms", schemas.ErrInvalidArgument)
	}
	return "", drv.Wait(ctx, time.Duration(action.DurationMillis)*time.Millisecond)
}

func handleExecuteScript(ctx context.Context, drv driver.Driver, action schemas.ActionDescriptor) (string, error) {
	if action.Script == "" {
		return "", fmt.Errorf("%w: execute_script requires a script", schemas.ErrInvalidArgument)
	}
	return drv.ExecuteScript(ctx, action.Script, action.Args)
}

func handleScreenshot(ctx context.Context, drv driver.Driver, _ schemas.ActionDescriptor) (string, error) {
	return drv.Screenshot(ctx)
}

func handleGetText(ctx context.Context, drv driver.Driver, action schemas.ActionDescriptor) (string, error) {
	sel, err := requireSelector(action)
	if err != nil {
		return "", err
	}
	return drv.Text(ctx, sel)
}

func handleGetTitle(ctx context.Context, drv driver.Driver, _ schemas.ActionDescriptor) (string, error) {
	return drv.Title(ctx)
}

func handleGetURL(ctx context.Context, drv driver.Driver, _ schemas.ActionDescriptor) (string, error) {
	return drv.CurrentURL(ctx)
}
