// Package contact recebe o formulário de contato do site: valida e sanitiza o
// envio, aplica o rate limit por cliente e dispara a notificação por e-mail.
//
// O Handler segue cinco etapas, cada uma podendo encerrar a resposta:
// método (OPTIONS/POST), rate limit (429), validação (400), envio (500) e
// sucesso (200). Os corpos de erro seguem sempre o envelope
// {success:false, error:{code, message, ...}}.
package contact
