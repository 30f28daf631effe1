package chat

import "github.com/slack-go/slack"

// 交互按钮
const (
	ButtonActionID = "button_click"
	ButtonLabel    = "Click me!"
)

// MessageBlocks 构造消息布局：mrkdwn 段落、分割线、单按钮操作区
func MessageBlocks(text string) []slack.Block {
	section := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, text, false, false),
		nil, nil,
	)
	button := slack.NewButtonBlockElement(
		ButtonActionID, "",
		slack.NewTextBlockObject(slack.PlainTextType, ButtonLabel, false, false),
	)

	return []slack.Block{
		section,
		slack.NewDividerBlock(),
		slack.NewActionBlock("", button),
	}
}
