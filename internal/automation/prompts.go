package automation

// Tool names used to key stored prompt overrides.
const (
	ToolRenamer     = "renamer"
	ToolCategorizer = "categorizer"
	ToolTargeted    = "categorizer_targeted"
)

// Compiled-in defaults, used when no override is stored. The dashboard
// can replace them per tool at runtime.
const renamerPrompt = `Você é um assistente de padronização de nomes de produtos de supermercado.
Receberá o nome atual de um produto e deve devolver APENAS o nome corrigido, sem explicações.

Regras:
- Corrija abreviações comuns (ex.: "REFRIG" vira "Refrigerante", "CERV" vira "Cerveja").
- Use capitalização de título: primeira letra de cada palavra em maiúscula.
- Mantenha marca, peso e volume quando presentes (ex.: "2L", "500g").
- Não invente informações que não estejam no nome original.
- Responda somente com o nome final, em uma única linha.`

const categorizerPrompt = `Você é um classificador de produtos de supermercado.
Receberá uma lista numerada de produtos e a lista de subcategorias disponíveis no formato "id | nome | categoria".
Para cada produto, escolha a subcategoria mais adequada.

Responda APENAS com um objeto JSON mapeando o número do produto para o id da subcategoria escolhida.
Exemplo: {"1": "bebidas-refrigerantes", "2": "padaria-paes"}
Não adicione texto fora do JSON.`

const targetedPrompt = `Você é um classificador de produtos de supermercado.
Receberá o nome de um produto e uma subcategoria candidata.
Responda "SIM" se o produto pertence à subcategoria, ou "NAO" caso contrário.
Responda apenas com SIM ou NAO.`

// strictJSONInstruction is appended on the single retry when a batch
// answer could not be matched to any known subcategory.
const strictJSONInstruction = `

IMPORTANTE: a resposta anterior não pôde ser interpretada.
Responda ESTRITAMENTE com um objeto JSON válido, sem markdown, sem texto extra.
Use exatamente os ids de subcategoria fornecidos na lista.`

func defaultPrompt(tool string) string {
	switch tool {
	case ToolRenamer:
		return renamerPrompt
	case ToolCategorizer:
		return categorizerPrompt
	case ToolTargeted:
		return targetedPrompt
	default:
		return ""
	}
}

// DefaultPrompt exposes the compiled-in template for dashboard display.
func DefaultPrompt(tool string) string { return defaultPrompt(tool) }
