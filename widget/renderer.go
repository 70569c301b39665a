package widget

import "github.com/creastat/welfarechat/message"

// View is everything a render surface needs to draw the widget.
type View struct {
	Open      bool
	Draft     string
	Messages  []message.Message
	Streaming bool
	Helper    string
}

// Renderer draws a View. It is called on the widget loop after every
// mutation and must not call back into the widget.
type Renderer interface {
	Render(v View)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(v View)

// Render implements Renderer.
func (f RendererFunc) Render(v View) { f(v) }

type nopRenderer struct{}

func (nopRenderer) Render(View) {}

// HelperText is the hint shown under the input box.
func HelperText(hasMessages bool) string {
	if !hasMessages {
		return "궁금한 내용을 입력해 주세요. 예: 주민등록 등본 발급 방법"
	}
	return "Shift+Enter로 줄바꿈 할 수 있어요."
}
