package mailer

import (
	"errors"
	"net/smtp"
)

// xoauth2Auth 实现 SMTP XOAUTH2 认证机制
type xoauth2Auth struct {
	user        string
	accessToken string
}

func (a *xoauth2Auth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	if !server.TLS {
		return "", nil, errors.New("xoauth2: refusing to send token over unencrypted connection")
	}
	resp := "user=" + a.user + "\x01auth=Bearer " + a.accessToken + "\x01\x01"
	return "XOAUTH2", []byte(resp), nil
}

// Next 服务端在认证失败时会返回一段 JSON 错误描述，回复空行以获取最终错误码
func (a *xoauth2Auth) Next(fromServer []byte, more bool) ([]byte, error) {
	if more {
		return []byte{}, nil
	}
	return nil, nil
}
