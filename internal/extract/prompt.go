package extract

// PromptVersion identifies the instruction set sent to the vision model.
// Bump it whenever the field list or the formatting rules change so stored
// raw extractions can be traced back to the prompt that produced them.
const PromptVersion = "v2"

// extractionPrompt is the fixed instruction set for the OCR stage. The model
// is told to behave as a measurement device: extract, never analyze. Numeric
// formatting rules are spelled out because downstream parsing depends on
// them, and the gross-vs-net rule exists because bills that zero out a tax
// line through solar credits still print non-zero gross amounts in the
// itemized billing table.
const extractionPrompt = `Você é um OCR especializado em contas de energia elétrica brasileiras.
Sua única tarefa é EXTRAIR dados da imagem com máxima precisão. NÃO faça análises ou recomendações.

ATENÇÃO ESPECIAL: Procure pela tabela "DESCRIÇÃO DO FATURAMENTO" ou similar que contém os itens cobrados.
Esta tabela geralmente tem colunas como: Item, Unid., Quant., Preço unit., Valor, PIS/COFINS, Base Calc., Alíquota, ICMS, Tarifa, etc.
SOME TODOS os valores da coluna ICMS para obter o icms_cost_gross.
SOME TODOS os valores da coluna de VALOR/Total para obter a energia bruta antes de créditos.

Extraia TODOS os campos disponíveis e retorne um JSON válido:

{
  "account_holder": "nome completo do titular",
  "account_number": "número da conta/unidade consumidora/instalação",
  "cpf_cnpj": "CPF ou CNPJ do titular",
  "distributor": "nome da distribuidora (CEMIG, CPFL, ENEL, LIGHT, COELBA, ENERGISA, etc)",
  "consumer_class": "classe de consumo (Residencial, Comercial, Industrial, Rural)",
  "subclass": "subgrupo tarifário (B1, B2, B3, A4, etc)",
  "tariff_modality": "modalidade (Convencional, Branca, Horosazonal Verde, Horosazonal Azul)",

  "reference_month": número do mês de referência (1-12),
  "reference_year": ano de referência (ex: 2024),
  "reading_date_current": "data da leitura atual (DD/MM/AAAA)",
  "reading_date_previous": "data da leitura anterior (DD/MM/AAAA)",
  "due_date": "data de vencimento (DD/MM/AAAA)",
  "billing_days": número de dias do período de faturamento,

  "meter_number": "número do medidor",
  "meter_reading_previous": leitura anterior em kWh,
  "meter_reading_current": leitura atual em kWh,
  "measured_consumption_kwh": consumo medido total em kWh (da tabela de medição),
  "billed_consumption_kwh": consumo faturado em kWh (se informado separadamente),

  "injected_energy_kwh": energia injetada na rede em kWh (geração solar),
  "compensated_energy_kwh": energia compensada em kWh,
  "previous_credits_kwh": saldo anterior de créditos em kWh,
  "current_credits_kwh": saldo atual/final de créditos em kWh,
  "credit_expiry_date": "data de expiração dos créditos mais antigos",

  "tariff_te_kwh": tarifa de energia TE em R$/kWh,
  "tariff_tusd_kwh": tarifa de uso do sistema TUSD em R$/kWh,
  "tariff_flag": "bandeira tarifária (verde, amarela, vermelha 1, vermelha 2)",
  "tariff_flag_value_kwh": valor adicional da bandeira por kWh,

  "energy_cost_te": custo da energia TE em R$,
  "energy_cost_tusd": custo do TUSD em R$,
  "energy_cost": custo total de energia cobrado (TE + TUSD) após compensações em R$,
  "energy_cost_gross": valor BRUTO de energia ANTES de créditos/compensações (soma positiva da tabela de faturamento) em R$,
  "availability_cost": custo de disponibilidade/demanda mínima em R$,
  "public_lighting_cost": contribuição de iluminação pública (CIP/COSIP) em R$,

  "icms_base": base de cálculo do ICMS em R$,
  "icms_rate": alíquota do ICMS em % (ex: 25 para 25%),
  "icms_cost": valor FINAL do ICMS cobrado (pode ser 0 se compensado) em R$,
  "icms_cost_gross": valor BRUTO de ICMS da tabela de faturamento (soma da coluna ICMS) em R$,

  "pis_base": base de cálculo do PIS em R$,
  "pis_rate": alíquota do PIS em % (ex: 0.65),
  "pis_cost": valor do PIS cobrado em R$,
  "pis_cost_gross": valor bruto do PIS antes de compensações em R$,

  "cofins_base": base de cálculo do COFINS em R$,
  "cofins_rate": alíquota do COFINS em % (ex: 3),
  "cofins_cost": valor do COFINS cobrado em R$,
  "cofins_cost_gross": valor bruto do COFINS antes de compensações em R$,

  "sectoral_charges": encargos setoriais (CDE, PROINFA, etc) em R$,
  "fines_amount": multas por atraso em R$,
  "interest_amount": juros por atraso em R$,
  "other_charges": outras cobranças em R$,
  "other_credits": outros créditos/descontos em R$,

  "demand_contracted_kw": demanda contratada em kW (Grupo A),
  "demand_measured_kw": demanda medida em kW,
  "demand_billed_kw": demanda faturada em kW,
  "demand_excess_cost": custo de ultrapassagem de demanda em R$,

  "subtotal_before_taxes": subtotal antes de impostos em R$,
  "subtotal_gross": subtotal BRUTO da tabela de faturamento (antes de créditos negativos) em R$,
  "credit_discount": desconto de créditos de energia solar em R$ (geralmente valor negativo na fatura),
  "total_amount": valor total final da fatura a pagar em R$,

  "consumption_by_type": [
    {
      "item": "nome do item (ex: Energia Ativa Fornecida TE, Energia Ativa TUSD, etc)",
      "quantity_kwh": quantidade em kWh,
      "unit_price": preço unitário,
      "total_value": valor total deste item,
      "icms": valor de ICMS deste item
    }
  ],

  "legal_notices": ["lista de avisos legais importantes encontrados"],
  "tariff_notes": ["notas sobre tarifas ou reajustes mencionados"],

  "extraction_confidence": confiança geral da extração (0-100),
  "fields_not_found": ["lista de campos que não foram encontrados na conta"]
}

REGRAS CRÍTICAS:
1. Retorne APENAS o JSON, sem markdown, sem explicações, sem cercas de código
2. Use números decimais com PONTO (ex: 123.45, não 123,45)
3. Para valores monetários, extraia APENAS o número sem R$
4. Para kWh, extraia APENAS o número sem unidade
5. Se um campo não existe na conta, use null
6. Para campos de lista, retorne array vazio [] se não encontrar
7. Seja PRECISO - prefira null a inventar valores
8. Procure em TODAS as áreas da conta, incluindo letras pequenas
9. IMPORTANTE: Capture valores BRUTOS (gross) da tabela de descrição do faturamento mesmo se o total for zero
10. Valores negativos na tabela (créditos) devem ser somados no credit_discount`

const extractionCaption = "Extraia TODOS os dados desta conta de energia:"
