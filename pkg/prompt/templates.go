package prompt

import "domstudio/pkg/domain"

// defaultTemplates carries the built-in per-module instruction blocks. The
// texts are product configuration; a deployment can override them with a YAML
// file (see Registry.LoadFile).
var defaultTemplates = map[domain.ModuleType]string{
	domain.ModulePromptVisual: `Sua tarefa é analisar o roteiro base e gerar Prompts de Criação EM INGLÊS para personagens e cenários chave do episódio de 'O Mundo de Dom', formatados para IA de imagem (estilo MidJourney).
Siga ESTRITAMENTE O SEGUINTE FORMATO:
1.  **Título:** (Opcional) Comece com "Episódio X – Nome do Episódio".
2.  **Categorias:** Organize os prompts em categorias lógicas (ex: "Personagens", "Cenários"). Use um emoji seguido pelo NOME DA CATEGORIA EM MAIÚSCULAS (ex: "🧒 PERSONAGENS", "🌍 CENÁRIOS").
3.  **Itens dentro da Categoria:** Para cada item a ser gerado (personagem ou cenário):
    * Use um emoji relevante seguido pelo Nome do Item (ex: "🏫 Sala de Aula Infantil").
    * Na linha seguinte, escreva EXATAMENTE "Prompt (EN):".
    * Na linha seguinte, comece o texto do prompt DETALHADO em INGLÊS.
4.  **Conteúdo do Prompt (EN):** O prompt em inglês DEVE incluir:
    * Estilo base: "2D hand-drawn cartoon style".
    * Público/Detalhe: "preschool animation/cartoon", "simple proportions", "friendly", "cozy", "colorful".
    * Detalhes específicos do item (cores, roupas, ambiente, atmosfera) conforme descrito no roteiro base.
    * Para cenários, adicione "16:9 composition".
    * Para personagens isolados, pode adicionar "White background" se apropriado.
Gere prompts para TODOS os elementos visuais distintos e importantes mencionados ou implícitos no roteiro base.`,

	domain.ModuleRoteiroCompleto: `Sua tarefa é converter o roteiro base fornecido em um Roteiro Completo de Episódio para 'O Mundo de Dom'.
Siga ESTRITAMENTE O SEGUINTE FORMATO:
1.  **Título do Episódio:** (Opcional, pode omitir se já existir) Comece com "Episódio X: Nome do Episódio".
2.  **Cabeçalho de Cena:** Use "[Emoji Relevante] CENA X – NOME DA CENA EM MAIÚSCULAS". O emoji deve corresponder ao local/contexto da cena (ex: 🎓 para escola, 🏠 para casa). Deve haver uma linha em branco antes de cada cabeçalho de cena.
3.  **Narração:** Escreva "NARRADOR" em maiúsculas numa linha própria. Na linha seguinte, o texto da narração.
4.  **Diálogo:**
    * Escreva "NOME_DO_PERSONAGEM" em maiúsculas numa linha própria.
    * Indicação de ação ou tom entre parênteses "( )" na linha imediatamente abaixo (ex: "(sorrindo)").
    * Na linha seguinte, o texto do diálogo iniciado com "—" (travessão).
5.  **Ações no Roteiro:** Ações importantes podem ser descritas na narração; sons podem ser mencionados na narração (ex: "Som de foguete subindo suavemente.").
6.  **Espaçamento:** Mantenha linhas em branco entre blocos (cena, narrador, personagem/diálogo) para clareza.
Adapte TODO o roteiro base para este formato detalhado.`,

	domain.ModuleRoteiroCena: `Sua tarefa é converter o roteiro base em um Roteiro de Cenas (Shot List) para 'O Mundo de Dom', formatado para geração de imagens por IA.
Siga ESTRITAMENTE O SEGUINTE FORMATO:
1.  **Título:** Comece com "PARTE X – ROTEIRO DE CENAS (para geração de imagens com IA)".
2.  **Introdução:** Inclua um parágrafo introdutório explicando o propósito (microcenas de 3-5 segundos, geração por IA).
3.  **Separador de Cena Principal:** Use o caractere "🔹" numa linha própria para separar os blocos de cada CENA principal.
4.  **Cabeçalho de Cena:** Abaixo do separador "🔹", escreva "CENA X – Nome da Cena em Maiúsculas".
5.  **Microcenas:** Liste as microcenas numeradas sequencialmente dentro de cada cena principal (ex: "1.1", "1.2", "2.1").
6.  **Descrição da Microcena:** Após o número, escreva uma descrição MUITO CONCISA da AÇÃO VISUAL principal. Foque no que deve ser visto (personagens, objetos, movimento, close-ups). Evite diálogos. Exemplo: "1.1 Dom desenha estrelas no caderno (close)".
Adapte TODO o roteiro base para esta estrutura de shot list visual.`,

	domain.ModuleRoteiroLivro: `Sua tarefa é adaptar o roteiro base fornecido para o formato de um Roteiro de Livro Ilustrado infantil de 'O Mundo de Dom'.
Siga ESTRITAMENTE O SEGUINTE FORMATO:
1.  **Título:** Comece com "Livro X – Nome do Livro (Roteiro ilustrado por página)".
2.  **Separador/Marcador de Página:** Use o caractere "🟦" numa linha própria para indicar o início de CADA nova página.
3.  **Cabeçalho de Página:** Na linha imediatamente abaixo do separador "🟦", escreva "Página X" (começando em 1).
4.  **Texto da Página:** Nas linhas seguintes, o texto narrativo dessa página. O texto deve ser CURTO, SIMPLES, em 3ª pessoa, com tom leve e mágico. Diálogos integrados de forma simples (ex: "Dom sorriu:\n— Oi!"). NÃO inclua sugestões visuais explícitas, apenas o texto narrativo da página.
Divida TODA a história do roteiro base em páginas curtas seguindo este formato.`,

	domain.ModuleRoteiroAudiobook: `Sua tarefa é adaptar o texto do roteiro base para um Roteiro de Audiobook de 'O Mundo de Dom'.
Siga ESTRITAMENTE o formato:
- Mantenha o texto narrativo e os diálogos.
- Insira marcações claras entre colchetes "[]" para guiar o narrador de voz:
    - Entonações: ex: "[com curiosidade]", "[empolgado]", "[sussurrando]", "[tom gentil]".
    - Pausas: ex: "[pausa curta]", "[pausa dramática]", "[pausa longa]".
    - Efeitos Sonoros (SFX): ex: "[efeito: sino da escola toca]", "[efeito: miado suave]".
    - Música (sugestão): ex: "[música: tema de abertura suave entra e some]".
    - Vozes (se necessário distinguir do narrador principal): ex: "[voz: Professora Marta]", "[voz: Dom]".
O objetivo é um roteiro pronto para gravação de áudio, mantendo o tom mágico e infantil de 'O Mundo de Dom'.`,
}
