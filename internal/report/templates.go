package report

const campaignTemplate = `# Campaign performance{% if source != "" %}: {{ source }}{% endif %}

{{ summary.campaigns }} campaigns analysed.

| Total | Value |
|---|---|
| Impressions | {{ summary.impressions | num }} |
| Clicks | {{ summary.clicks | num }} |
| Conversions | {{ summary.conversions | num }} |
| Cost | {{ summary.cost | money }} |
| Revenue | {{ summary.revenue | money }} |

| Blended ratio | Value |
|---|---|
| CTR | {{ summary.ctr | pct }} |
| Conversion rate | {{ summary.conversion_rate | pct }} |
| Cost per conversion | {{ summary.cost_per_conversion | money }} |
| ROI | {{ summary.roi | pct }} |
`

const sentimentTemplate = `# Sentiment model{% if source != "" %}: {{ source }}{% endif %}

Accuracy **{{ model.accuracy | pct }}** on {{ model.test_rows }} held-out reviews
({{ model.train_rows }} used for training, {{ model.features }} features,
positive when rating >= {{ model.threshold }}).

| Class | Precision | Recall | F1 | Support |
|---|---|---|---|---|
{% for c in classes %}| {{ c.label }} | {{ c.precision | num }} | {{ c.recall | num }} | {{ c.f1 | num }} | {{ c.support }} |
{% endfor %}| macro avg | {{ macro.precision | num }} | {{ macro.recall | num }} | {{ macro.f1 | num }} | {{ macro.support }} |
| weighted avg | {{ weighted.precision | num }} | {{ weighted.recall | num }} | {{ weighted.f1 | num }} | {{ weighted.support }} |
`

const segmentationTemplate = `# Customer segments{% if source != "" %}: {{ source }}{% endif %}

{{ customers }} customers in {{ profiles.size }} clusters, silhouette {{ score | num }}.

| Cluster | Customers | Recency (days) | Frequency | Monetary |
|---|---|---|---|---|
{% for p in profiles %}| {{ p.cluster }} | {{ p.customers }} | {{ p.recency | num }} | {{ p.frequency | num }} | {{ p.monetary | money }} |
{% endfor %}`
