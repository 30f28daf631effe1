package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Contact 联系表单内容
type Contact struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Subject 邮件主题
func (c Contact) Subject() string {
	return fmt.Sprintf("%s sent you a message", c.Email)
}

// Body 邮件正文
func (c Contact) Body() string {
	return fmt.Sprintf("Message from %s: %s", c.Name, c.Message)
}

// Compose 使用固定的发件人与收件人构造邮件
func Compose(from, to string, c Contact) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", c.Subject())
	m.SetBody("text/plain", c.Body())
	return m
}
