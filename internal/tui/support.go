package tui

const supportMarkdown = `
# Central de Suporte

Entre em contato com nossa equipe.

## E-mail

- lemarq@lemarq.com.br (assunto: *Suporte Oversee*)

## Telefones

- +55 (84) 3316-3070
- +55 (84) 99637-8231

Atendimento de segunda a sexta, das 8h às 17h.

---

Oversee V. 1.0 By Lemarq Software
`
